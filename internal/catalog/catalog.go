// Package catalog persists sealed document sets in a SQLite database so that
// later runs can resolve references into them and the CLI and MCP server can
// query them. The catalog is stored in .maid/catalog.db by default.
package catalog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// DefaultFile is the catalog file name inside the config directory.
const DefaultFile = "catalog.db"

// ErrNotFound is returned when a member or document set is not stored.
var ErrNotFound = errors.New("not found in catalog")

// Catalog manages the catalog database.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the catalog database at dbPath. It initializes the
// schema if the database is new.
func Open(dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create catalog directory for %s", dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog db")
	}

	// Enable WAL mode for concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}
	// One writer at a time; rows are never iterated while another
	// statement runs.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Clear removes every stored run, set and member.
func (c *Catalog) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM members; DELETE FROM doc_sets; DELETE FROM runs;")
	if err != nil {
		return errors.Wrap(err, "clear catalog")
	}
	return nil
}

// Stats counts the catalog contents.
type Stats struct {
	Runs    int64 `json:"runs" yaml:"runs"`
	Sets    int64 `json:"sets" yaml:"sets"`
	Members int64 `json:"members" yaml:"members"`
}

// Stats returns statistics about the catalog contents.
func (c *Catalog) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	for _, q := range []struct {
		table string
		dst   *int64
	}{
		{"runs", &stats.Runs},
		{"doc_sets", &stats.Sets},
		{"members", &stats.Members},
	} {
		if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return nil, errors.Wrapf(err, "count %s", q.table)
		}
	}
	return &stats, nil
}
