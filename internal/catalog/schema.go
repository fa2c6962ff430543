package catalog

// schemaSQL defines the SQLite schema for the catalog database.
// Tables:
//   - runs: one row per extraction run
//   - doc_sets: the latest sealed version of each document set
//   - members: the entities of each stored set, with the serialized member as body
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS doc_sets (
    doc_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    sealed_at TEXT NOT NULL,
    member_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS members (
    doc_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    namespace TEXT NOT NULL DEFAULT '',
    qualified_name TEXT NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (doc_id, member_id)
);

CREATE INDEX IF NOT EXISTS idx_members_member_id ON members(member_id);
CREATE INDEX IF NOT EXISTS idx_members_name ON members(name);
CREATE INDEX IF NOT EXISTS idx_members_qualified ON members(qualified_name);
CREATE INDEX IF NOT EXISTS idx_members_kind ON members(kind);
`

// initSchema creates the database tables and indexes if they don't exist.
func (c *Catalog) initSchema() error {
	_, err := c.db.Exec(schemaSQL)
	return err
}
