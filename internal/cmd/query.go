package cmd

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/emit"
)

// queryFormat is the --format flag shared by show, find and sets.
var queryFormat string

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id-or-name>",
	Short: "Show one member from the catalog",
	Long: `Display the documentation model of one member stored in the catalog.

Accepts member ids or names:
  - Ids: Shop/Acme.Data/Repo` + "`" + `1.Get(int)
  - Names and qualified names: Repo, Acme.Data.Repo.Get
A name must match exactly one member; otherwise the candidates are listed.`,
	Example: `  maid show 'Shop/Acme.Data/Order'
  maid show Acme.Data.Order.Total --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find members in the catalog by name",
	Long: `Search stored members by name or qualified name.

A pattern without wildcards matches as a substring; '*' and '?' are
wildcards otherwise. Results are ordered by document set and declaration.`,
	Example: `  maid find Repo
  maid find 'Acme.Data.*' --kind method
  maid find Get --doc Shop --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

// setsCmd represents the sets command
var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List the document sets stored in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runSets,
}

var findFlags struct {
	kind  string
	docID string
	limit int
}

func init() {
	rootCmd.AddCommand(showCmd, findCmd, setsCmd)

	for _, c := range []*cobra.Command{showCmd, findCmd, setsCmd} {
		c.Flags().StringVar(&queryFormat, "format", "yaml", "Output format: yaml | json")
	}
	findCmd.Flags().StringVar(&findFlags.kind, "kind", "", "Filter by kind: type, method, constructor, property, field")
	findCmd.Flags().StringVar(&findFlags.docID, "doc", "", "Restrict to one document set")
	findCmd.Flags().IntVar(&findFlags.limit, "limit", catalog.DefaultFindLimit, "Maximum results")
}

func withCatalog(fn func(*catalog.Catalog) error) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	cat, err := ws.openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()
	return fn(cat)
}

func writeOutput(w io.Writer, v any) error {
	format, err := emit.ParseFormat(queryFormat)
	if err != nil {
		return err
	}
	data, err := emit.Marshal(format, v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runShow(cmd *cobra.Command, args []string) error {
	return withCatalog(func(cat *catalog.Catalog) error {
		m, err := lookupMember(cmd.Context(), cat, args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), m)
	})
}

// lookupMember resolves query as a member id, then as an exact name or
// qualified name.
func lookupMember(ctx context.Context, cat *catalog.Catalog, query string) (*docs.Member, error) {
	m, err := cat.Get(ctx, docs.MemberID(query))
	if err == nil || !errors.Is(err, catalog.ErrNotFound) {
		return m, err
	}

	records, err := cat.Find(ctx, catalog.FindOptions{Pattern: query, Limit: catalog.DefaultFindLimit})
	if err != nil {
		return nil, err
	}
	var exact []catalog.Record
	for _, r := range records {
		if r.Name == query || r.QualifiedName == query {
			exact = append(exact, r)
		}
	}
	switch len(exact) {
	case 0:
		return nil, errors.WithHint(errors.Wrapf(catalog.ErrNotFound, "member %s", query),
			"use 'maid find' to search by pattern")
	case 1:
		return cat.Get(ctx, exact[0].ID)
	}
	ids := make([]string, len(exact))
	for i, r := range exact {
		ids[i] = string(r.ID)
	}
	return nil, errors.WithHint(errors.Newf("%q matches %d members", query, len(exact)),
		"use one of the ids:\n  "+strings.Join(ids, "\n  "))
}

func runFind(cmd *cobra.Command, args []string) error {
	opts := catalog.FindOptions{Pattern: args[0], DocID: findFlags.docID, Limit: findFlags.limit}
	if findFlags.kind != "" {
		kind, err := docs.ParseKind(findFlags.kind)
		if err != nil {
			return err
		}
		opts.Kind = kind
	}
	return withCatalog(func(cat *catalog.Catalog) error {
		records, err := cat.Find(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if records == nil {
			records = []catalog.Record{}
		}
		return writeOutput(cmd.OutOrStdout(), map[string]any{"results": records, "count": len(records)})
	})
}

func runSets(cmd *cobra.Command, args []string) error {
	return withCatalog(func(cat *catalog.Catalog) error {
		sets, err := cat.Sets(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := cat.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if sets == nil {
			sets = []catalog.SetInfo{}
		}
		return writeOutput(cmd.OutOrStdout(), struct {
			Sets  []catalog.SetInfo `json:"sets" yaml:"sets"`
			Stats *catalog.Stats    `json:"stats" yaml:"stats"`
		}{sets, stats})
	})
}
