package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/resolve"
)

// Record is the index row of a stored member.
type Record struct {
	DocID         string        `json:"docId" yaml:"docId"`
	ID            docs.MemberID `json:"id" yaml:"id"`
	Kind          docs.Kind     `json:"kind" yaml:"kind"`
	Name          string        `json:"name" yaml:"name"`
	Namespace     string        `json:"namespace" yaml:"namespace"`
	QualifiedName string        `json:"qualifiedName" yaml:"qualifiedName"`
}

// FindOptions filters Find.
type FindOptions struct {
	// Pattern matches the name or qualified name. "*" and "?" are
	// wildcards; a pattern without wildcards matches as a substring.
	Pattern string
	Kind    docs.Kind
	DocID   string
	// Limit caps the result count. Zero means DefaultFindLimit.
	Limit int
}

// DefaultFindLimit is the result cap applied when FindOptions.Limit is zero.
const DefaultFindLimit = 50

// Get returns the stored member with the given id. When several sets hold
// the id, the first set by document id wins.
func (c *Catalog) Get(ctx context.Context, id docs.MemberID) (*docs.Member, error) {
	var body string
	err := c.db.QueryRowContext(ctx,
		"SELECT body FROM members WHERE member_id = ? ORDER BY doc_id LIMIT 1", string(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "member %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get member %s", id)
	}
	var m docs.Member
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, errors.Wrapf(err, "decode member %s", id)
	}
	return &m, nil
}

// Find returns the members matching opts in set and insertion order.
func (c *Catalog) Find(ctx context.Context, opts FindOptions) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFindLimit
	}

	var where []string
	var args []any
	if opts.Pattern != "" {
		like := likePattern(opts.Pattern)
		where = append(where, `(name LIKE ? ESCAPE '\' OR qualified_name LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}
	if opts.DocID != "" {
		where = append(where, "doc_id = ?")
		args = append(args, opts.DocID)
	}

	query := "SELECT doc_id, member_id, kind, name, namespace, qualified_name FROM members"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY doc_id, position LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query members")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var id, kind string
		if err := rows.Scan(&r.DocID, &id, &kind, &r.Name, &r.Namespace, &r.QualifiedName); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		r.ID, r.Kind = docs.MemberID(id), docs.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Entries returns every stored member as a resolution index entry, in set
// and insertion order.
func (c *Catalog) Entries(ctx context.Context) ([]resolve.Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT doc_id, member_id, kind, name, namespace FROM members ORDER BY doc_id, position")
	if err != nil {
		return nil, errors.Wrap(err, "query entries")
	}
	defer rows.Close()

	var out []resolve.Entry
	for rows.Next() {
		var e resolve.Entry
		var id, kind, ns string
		if err := rows.Scan(&e.DocID, &id, &kind, &e.Name, &ns); err != nil {
			return nil, errors.Wrap(err, "scan entry")
		}
		e.ID, e.Kind, e.Persisted = docs.MemberID(id), docs.Kind(kind), true
		if e.Kind == docs.KindType {
			e.Namespace = ns
			e.Name, e.Arity = resolve.SplitArity(e.Name)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// likePattern turns a wildcard pattern into a LIKE pattern escaped with '\'.
func likePattern(pattern string) string {
	var sb strings.Builder
	wild := false
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteByte('%')
			wild = true
		case '?':
			sb.WriteByte('_')
			wild = true
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	if !wild {
		return "%" + sb.String() + "%"
	}
	return sb.String()
}
