package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/maid-docs/maid/internal/docs"
)

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := Open(filepath.Join(t.TempDir(), DefaultFile))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// sampleSet builds a sealed set with a generic type Repo`1 holding a method
// and a property, plus a type in the global namespace.
func sampleSet(t *testing.T, docID string) *docs.DocumentSet {
	t.Helper()

	repoID := docs.TypeID(docID, "Acme.Data", "Repo", 1)
	getID := docs.MethodID(repoID, "Get", 0, []string{"int"})
	countID := docs.ValueMemberID(repoID, "Count")
	mainID := docs.TypeID(docID, "", "Program", 0)

	repo := docs.NewMember(docID, repoID, docs.KindType, "Repo`1").Configure(func(m *docs.Member) {
		m.Access = docs.AccessPublic
		m.Type.TypeKind = docs.TypeClass
		m.Type.Namespace = docs.NameOf("Acme.Data")
		m.Type.Assembly = docID
		m.Type.Methods = []docs.MemberID{getID}
		m.Type.Properties = []docs.MemberID{countID}
		m.Documentation = docs.ParseDocumentation("<summary>Stores things.</summary>")
	})
	get := docs.NewMember(docID, getID, docs.KindMethod, "Get").Configure(func(m *docs.Member) {
		m.DeclaringType = repoID
		m.Access = docs.AccessPublic
		m.Method.Returns = docs.Internal(docID, repoID)
		m.Method.Parameters = []docs.Parameter{{Name: "id", Type: docs.External("int", "")}}
	})
	count := docs.NewMember(docID, countID, docs.KindProperty, "Count").Configure(func(m *docs.Member) {
		m.DeclaringType = repoID
		m.Access = docs.AccessPublic
		m.Property.Type = docs.External("int", "")
		m.Property.Accessors = docs.AccessorGet
	})
	program := docs.NewMember(docID, mainID, docs.KindType, "Program").Configure(func(m *docs.Member) {
		m.Access = docs.AccessInternal
		m.Type.TypeKind = docs.TypeClass
		m.Type.Namespace = docs.NameOf("")
		m.Type.Assembly = docID
	})

	set := docs.NewDocumentSet(docID)
	advance(t, set, docs.Merging, docs.Resolving)
	for _, m := range []*docs.Member{repo, get, count, program} {
		if err := set.Add(m); err != nil {
			t.Fatalf("add %s: %v", m.ID, err)
		}
	}
	advance(t, set, docs.Sealed)
	return set
}

func advance(t *testing.T, set *docs.DocumentSet, states ...docs.State) {
	t.Helper()
	for _, st := range states {
		if err := set.Advance(st); err != nil {
			t.Fatal(err)
		}
	}
}

func saveSet(t *testing.T, c *Catalog, set *docs.DocumentSet) *Run {
	t.Helper()
	ctx := context.Background()
	run, err := c.BeginRun(ctx)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := c.Save(ctx, run, set); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.FinishRun(ctx, run); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	return run
}

func TestCatalogOpenClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)

	c, err := Open(path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	if c.Path() != path {
		t.Errorf("path = %q, want %q", c.Path(), path)
	}
	if err := c.Close(); err != nil {
		t.Errorf("close: %v", err)
	}

	// Reopen should work
	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	defer c2.Close()
}

func TestSaveAndGet(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()
	saveSet(t, c, sampleSet(t, "Shop"))

	m, err := c.Get(ctx, "Shop/Acme.Data/Repo`1.Get(int)")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Kind != docs.KindMethod || m.DeclaringType != "Shop/Acme.Data/Repo`1" {
		t.Errorf("unexpected member %+v", m)
	}
	if m.Method == nil || m.Method.Returns != docs.Internal("Shop", "Shop/Acme.Data/Repo`1") {
		t.Errorf("references did not survive the round trip: %+v", m.Method)
	}

	repo, err := c.Get(ctx, "Shop/Acme.Data/Repo`1")
	if err != nil {
		t.Fatalf("get type: %v", err)
	}
	if ns, _ := repo.Type.Namespace.Literal(); ns != "Acme.Data" {
		t.Errorf("namespace = %q, want Acme.Data", ns)
	}
	if repo.Documentation.Status != docs.Documented || len(repo.Documentation.Nodes) != 1 {
		t.Errorf("documentation = %+v", repo.Documentation)
	}
}

func TestGetNotFound(t *testing.T) {
	c := setupTestCatalog(t)

	_, err := c.Get(context.Background(), "Nope//Missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveReplacesPreviousRows(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	first := saveSet(t, c, sampleSet(t, "Shop"))

	smaller := docs.NewDocumentSet("Shop")
	advance(t, smaller, docs.Merging, docs.Resolving, docs.Sealed)
	second := saveSet(t, c, smaller)

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Runs != 2 || stats.Sets != 1 || stats.Members != 0 {
		t.Errorf("stats = %+v, want 2 runs, 1 set, 0 members", stats)
	}

	sets, err := c.Sets(ctx)
	if err != nil {
		t.Fatalf("sets: %v", err)
	}
	if len(sets) != 1 || sets[0].RunID != second.ID || sets[0].RunID == first.ID {
		t.Errorf("sets = %+v, want the second run", sets)
	}
}

func TestSaveRejectsUnsealed(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()
	run, err := c.BeginRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx, run, docs.NewDocumentSet("Open")); err == nil {
		t.Error("expected an error for an unsealed set")
	}
}

func TestFind(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()
	saveSet(t, c, sampleSet(t, "Shop"))
	saveSet(t, c, sampleSet(t, "Admin"))

	tests := []struct {
		name string
		opts FindOptions
		want []docs.MemberID
	}{
		{
			name: "substring",
			opts: FindOptions{Pattern: "repo", DocID: "Shop"},
			want: []docs.MemberID{"Shop/Acme.Data/Repo`1", "Shop/Acme.Data/Repo`1.Get(int)", "Shop/Acme.Data/Repo`1.Count"},
		},
		{
			name: "wildcard on qualified name",
			opts: FindOptions{Pattern: "Acme.Data.Repo`1.*", DocID: "Admin"},
			want: []docs.MemberID{"Admin/Acme.Data/Repo`1.Get(int)", "Admin/Acme.Data/Repo`1.Count"},
		},
		{
			name: "kind filter",
			opts: FindOptions{Kind: docs.KindType},
			want: []docs.MemberID{"Admin/Acme.Data/Repo`1", "Admin//Program", "Shop/Acme.Data/Repo`1", "Shop//Program"},
		},
		{
			name: "limit",
			opts: FindOptions{Pattern: "Program", Limit: 1},
			want: []docs.MemberID{"Admin//Program"},
		},
		{
			name: "underscore is literal",
			opts: FindOptions{Pattern: "Re_o"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Find(ctx, tt.opts)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records %+v, want %v", len(got), got, tt.want)
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Errorf("record %d = %s, want %s", i, r.ID, tt.want[i])
				}
			}
		})
	}
}

func TestFindQualifiedNames(t *testing.T) {
	c := setupTestCatalog(t)
	saveSet(t, c, sampleSet(t, "Shop"))

	got, err := c.Find(context.Background(), FindOptions{Pattern: "Count"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
	if got[0].QualifiedName != "Acme.Data.Repo`1.Count" || got[0].Namespace != "Acme.Data" {
		t.Errorf("record = %+v", got[0])
	}
}

func TestEntries(t *testing.T) {
	c := setupTestCatalog(t)
	saveSet(t, c, sampleSet(t, "Shop"))

	entries, err := c.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	repo := entries[0]
	if repo.Name != "Repo" || repo.Arity != 1 || repo.Namespace != "Acme.Data" || !repo.Persisted {
		t.Errorf("type entry = %+v", repo)
	}
	get := entries[1]
	if get.Kind != docs.KindMethod || get.Namespace != "" || get.Name != "Get" {
		t.Errorf("method entry = %+v", get)
	}
}

func TestGetRunAndClear(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()
	run := saveSet(t, c, sampleSet(t, "Shop"))

	got, err := c.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.FinishedAt.IsZero() {
		t.Error("expected finished_at to be recorded")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := c.GetRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
	if err := c.FinishRun(ctx, run); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound finishing a cleared run, got %v", err)
	}
}
