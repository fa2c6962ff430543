package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/symbol"
)

// Run is one extraction run recorded in the catalog.
type Run struct {
	ID         string    `json:"runId" yaml:"runId"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// SetInfo describes a stored document set.
type SetInfo struct {
	DocID    string    `json:"docId" yaml:"docId"`
	RunID    string    `json:"runId" yaml:"runId"`
	SealedAt time.Time `json:"sealedAt" yaml:"sealedAt"`
	Members  int       `json:"members" yaml:"members"`
}

// BeginRun records the start of a run and returns it with a fresh id.
func (c *Catalog) BeginRun(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now().UTC().Truncate(time.Second)}
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		run.ID, run.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrap(err, "begin run")
	}
	return run, nil
}

// FinishRun records the end of a run.
func (c *Catalog) FinishRun(ctx context.Context, run *Run) error {
	run.FinishedAt = time.Now().UTC().Truncate(time.Second)
	res, err := c.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ? WHERE run_id = ?",
		run.FinishedAt.Format(time.RFC3339), run.ID)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", run.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

// Save stores a sealed set under run, replacing every row previously stored
// for its document id in one transaction.
func (c *Catalog) Save(ctx context.Context, run *Run, set *docs.DocumentSet) error {
	if set.State() != docs.Sealed {
		return errors.Newf("document set %s is not sealed", set.DocID())
	}
	members := set.Members()
	namespaces := memberNamespaces(members)
	types := make(map[docs.MemberID]*docs.Member)
	for _, m := range members {
		if m.Type != nil {
			types[m.ID] = m
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	docID := set.DocID()
	if _, err := tx.ExecContext(ctx, "DELETE FROM members WHERE doc_id = ?", docID); err != nil {
		return errors.Wrapf(err, "delete members of %s", docID)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM doc_sets WHERE doc_id = ?", docID); err != nil {
		return errors.Wrapf(err, "delete set %s", docID)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO doc_sets (doc_id, run_id, sealed_at, member_count)
		VALUES (?, ?, ?, ?)`,
		docID, run.ID, time.Now().UTC().Format(time.RFC3339), len(members))
	if err != nil {
		return errors.Wrapf(err, "insert set %s", docID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (doc_id, member_id, position, kind, name, namespace, qualified_name, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare statement")
	}
	defer stmt.Close()

	for i, m := range members {
		body, err := json.Marshal(m)
		if err != nil {
			return errors.Wrapf(err, "encode %s", m.ID)
		}
		ns := namespaces[m.ID]
		if _, err := stmt.ExecContext(ctx,
			docID, string(m.ID), i, string(m.Kind), m.Name, ns, qualifiedName(m, ns, types), string(body)); err != nil {
			return errors.Wrapf(err, "insert member %d (%s)", i, m.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit set %s (%d members)", docID, len(members))
	}
	return nil
}

// Sets lists the stored document sets ordered by id.
func (c *Catalog) Sets(ctx context.Context) ([]SetInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT doc_id, run_id, sealed_at, member_count FROM doc_sets ORDER BY doc_id")
	if err != nil {
		return nil, errors.Wrap(err, "query sets")
	}
	defer rows.Close()

	var sets []SetInfo
	for rows.Next() {
		var s SetInfo
		var sealedAt string
		if err := rows.Scan(&s.DocID, &s.RunID, &sealedAt, &s.Members); err != nil {
			return nil, errors.Wrap(err, "scan set")
		}
		s.SealedAt, _ = time.Parse(time.RFC3339, sealedAt)
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// GetRun returns a recorded run.
func (c *Catalog) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT run_id, started_at, finished_at FROM runs WHERE run_id = ?", id).
		Scan(&run.ID, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, started)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished.String)
	}
	return &run, nil
}

// memberNamespaces maps every member to the namespace of its type.
func memberNamespaces(members []*docs.Member) map[docs.MemberID]string {
	out := make(map[docs.MemberID]string, len(members))
	for _, m := range members {
		if m.Type != nil {
			out[m.ID] = m.Type.Namespace.String()
		}
	}
	for _, m := range members {
		if m.Type == nil {
			out[m.ID] = out[m.DeclaringType]
		}
	}
	return out
}

// qualifiedName returns Namespace.Type for types and Namespace.Type.Member
// for members.
func qualifiedName(m *docs.Member, ns string, types map[docs.MemberID]*docs.Member) string {
	if m.Type != nil {
		return symbol.QualifiedName(ns, m.Name)
	}
	if owner, ok := types[m.DeclaringType]; ok {
		return symbol.QualifiedName(ns, owner.Name) + "." + m.Name
	}
	return symbol.QualifiedName(ns, m.Name)
}
