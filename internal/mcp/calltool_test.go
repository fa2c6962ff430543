package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/docs"
)

// setupServer returns a server over a catalog holding one set with a type
// Acme.Widget and its method Spin(int).
func setupServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Open(filepath.Join(t.TempDir(), catalog.DefaultFile))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	typeID := docs.TypeID("Shop", "Acme", "Widget", 0)
	spinID := docs.MethodID(typeID, "Spin", 0, []string{"int"})
	widget := docs.NewMember("Shop", typeID, docs.KindType, "Widget").Configure(func(m *docs.Member) {
		m.Access = docs.AccessPublic
		m.Type.TypeKind = docs.TypeClass
		m.Type.Namespace = docs.NameOf("Acme")
		m.Type.Assembly = "Shop"
		m.Type.Methods = []docs.MemberID{spinID}
	})
	spin := docs.NewMember("Shop", spinID, docs.KindMethod, "Spin").Configure(func(m *docs.Member) {
		m.DeclaringType = typeID
		m.Access = docs.AccessPublic
		m.Method.Returns = docs.External("void", "")
		m.Method.Parameters = []docs.Parameter{{Name: "turns", Type: docs.External("int", "")}}
	})

	set := docs.NewDocumentSet("Shop")
	for _, st := range []docs.State{docs.Merging, docs.Resolving} {
		if err := set.Advance(st); err != nil {
			t.Fatal(err)
		}
	}
	for _, m := range []*docs.Member{widget, spin} {
		if err := set.Add(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := set.Advance(docs.Sealed); err != nil {
		t.Fatal(err)
	}

	run, err := cat.BeginRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Save(ctx, run, set); err != nil {
		t.Fatal(err)
	}

	s, err := New(cat, Config{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func TestNewRequiresCatalog(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("expected an error without a catalog")
	}
}

func TestNewRejectsUnknownTool(t *testing.T) {
	s := setupServer(t)
	if _, err := New(s.catalog, Config{Tools: []string{"docs_show", "docs_delete"}}); err == nil {
		t.Error("expected an error for an unknown tool")
	}
}

func TestGetToolSchemas(t *testing.T) {
	for _, name := range AllTools {
		schema, ok := toolSchemaRegistry[name]
		if !ok {
			t.Errorf("toolSchemaRegistry missing tool: %s", name)
			continue
		}
		if schema.Name != name {
			t.Errorf("schema name mismatch: got %q, want %q", schema.Name, name)
		}
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", name)
		}
	}

	if len(toolSchemaRegistry) != len(AllTools) {
		t.Errorf("toolSchemaRegistry has %d tools, want %d", len(toolSchemaRegistry), len(AllTools))
	}

	s := setupServer(t)
	schemas := s.GetToolSchemas()
	names := make([]string, len(schemas))
	for i, sc := range schemas {
		names[i] = sc.Name
	}
	if !sort.StringsAreSorted(names) || len(names) != len(AllTools) {
		t.Errorf("schemas = %v", names)
	}
}

func TestToolSchemaParameters(t *testing.T) {
	tests := []struct {
		tool          string
		requiredParam string
	}{
		{"docs_show", "id"},
		{"docs_find", "pattern"},
	}

	for _, tt := range tests {
		schema := toolSchemaRegistry[tt.tool]
		found := false
		for _, p := range schema.Parameters {
			if p.Name == tt.requiredParam {
				found = true
				if !p.Required {
					t.Errorf("tool %s param %s should be required", tt.tool, tt.requiredParam)
				}
			}
		}
		if !found {
			t.Errorf("tool %s missing parameter %s", tt.tool, tt.requiredParam)
		}
	}
}

func TestCallTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantErr  bool
		contains string
	}{
		{
			name:     "show member",
			tool:     "docs_show",
			args:     map[string]any{"id": "Shop/Acme/Widget.Spin(int)"},
			contains: `"declaringType": "Shop/Acme/Widget"`,
		},
		{
			name:    "show missing member",
			tool:    "docs_show",
			args:    map[string]any{"id": "Shop/Acme/Gone"},
			wantErr: true,
		},
		{
			name:    "show without id",
			tool:    "docs_show",
			args:    map[string]any{},
			wantErr: true,
		},
		{
			name:     "find by wildcard",
			tool:     "docs_find",
			args:     map[string]any{"pattern": "Acme.Widget.*", "kind": "method"},
			contains: `"count": 1`,
		},
		{
			name:    "find with bad kind",
			tool:    "docs_find",
			args:    map[string]any{"pattern": "Widget", "kind": "event"},
			wantErr: true,
		},
		{
			name:     "sets",
			tool:     "docs_sets",
			args:     nil,
			contains: `"docId": "Shop"`,
		},
		{
			name:    "unknown tool",
			tool:    "docs_delete",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.CallTool(ctx, tt.tool, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CallTool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !json.Valid([]byte(out)) {
				t.Errorf("result is not JSON: %s", out)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("result missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestFindEmptyResult(t *testing.T) {
	s := setupServer(t)

	out, err := s.CallTool(context.Background(), "docs_find", map[string]any{"pattern": "Nothing", "limit": float64(5)})
	if err != nil {
		t.Fatal(err)
	}
	var res findResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || res.Results == nil {
		t.Errorf("expected an empty result list, got %+v", res)
	}
}
