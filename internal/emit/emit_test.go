package emit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/maid-docs/maid/internal/docs"
)

func typeMember(docID, ns, name string) *docs.Member {
	id := docs.TypeID(docID, ns, name, 0)
	return docs.NewMember(docID, id, docs.KindType, name).Configure(func(m *docs.Member) {
		m.Access = docs.AccessPublic
		m.Type.TypeKind = docs.TypeClass
		m.Type.Namespace = docs.NameOf(ns)
		m.Type.Assembly = docID
	})
}

func methodMember(owner *docs.Member, name string) *docs.Member {
	id := docs.MethodID(owner.ID, name, 0, nil)
	return docs.NewMember(owner.DocID, id, docs.KindMethod, name).Configure(func(m *docs.Member) {
		m.DeclaringType = owner.ID
		m.Access = docs.AccessPublic
		m.Method.Returns = docs.External("void", "")
		m.Method.Parameters = []docs.Parameter{}
		m.Documentation = docs.ParseDocumentation(`<summary>Runs <see cref="Foo"/> &amp; more.</summary>`)
		owner.Type.Methods = append(owner.Type.Methods, id)
	})
}

func sealedSet(t *testing.T, docID string, members ...*docs.Member) *docs.DocumentSet {
	t.Helper()
	set := docs.NewDocumentSet(docID)
	require.NoError(t, set.Advance(docs.Merging))
	require.NoError(t, set.Advance(docs.Resolving))
	for _, m := range members {
		require.NoError(t, set.Add(m))
	}
	require.NoError(t, set.Advance(docs.Sealed))
	return set
}

func sampleSets(t *testing.T) []*docs.DocumentSet {
	t.Helper()
	svc := typeMember("Shop", "Acme.Orders", "Service")
	run := methodMember(svc, "Run")
	top := typeMember("Shop", "", "Program")
	util := typeMember("Tools", "Acme.Orders", "Helper")
	return []*docs.DocumentSet{
		sealedSet(t, "Shop", svc, run, top),
		sealedSet(t, "Tools", util),
	}
}

func TestEmitDocSetGrouping(t *testing.T) {
	dir := t.TempDir()
	e := New(Options{Dir: dir, Logger: zaptest.NewLogger(t)})

	paths, err := e.Emit(context.Background(), sampleSets(t))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Shop.json"), filepath.Join(dir, "Tools.json")}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "Shop.json"))
	require.NoError(t, err)

	var unit struct {
		DocID   string            `json:"docId"`
		Members []json.RawMessage `json:"members"`
	}
	require.NoError(t, json.Unmarshal(data, &unit))
	assert.Equal(t, "Shop", unit.DocID)
	assert.Len(t, unit.Members, 3)

	text := string(data)
	assert.Contains(t, text, `<see cref=\"Foo\"/> &amp; more.`, "markup must not be HTML-escaped")
	assert.Less(t, strings.Index(text, `"docId"`), strings.Index(text, `"members"`))
	assert.Less(t, strings.Index(text, `"Shop/Acme.Orders/Service"`), strings.Index(text, `"Shop//Program"`))
}

func TestEmitNamespaceGrouping(t *testing.T) {
	dir := t.TempDir()
	e := New(Options{Dir: dir, Grouping: ByNamespace})

	paths, err := e.Emit(context.Background(), sampleSets(t))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Acme.Orders.json"), filepath.Join(dir, "global.json")}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "Acme.Orders.json"))
	require.NoError(t, err)
	var unit struct {
		Namespace string `json:"namespace"`
		Members   []struct {
			DocID string `json:"docId"`
			ID    string `json:"id"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(data, &unit))
	assert.Equal(t, "Acme.Orders", unit.Namespace)
	require.Len(t, unit.Members, 3)
	assert.Equal(t, "Shop/Acme.Orders/Service.Run()", unit.Members[1].ID)
	assert.Equal(t, "Tools", unit.Members[2].DocID)
}

func TestEmitYAMLKeepsFieldOrder(t *testing.T) {
	dir := t.TempDir()
	e := New(Options{Dir: dir, Format: FormatYAML})

	paths, err := e.Emit(context.Background(), sampleSets(t)[:1])
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "Shop.yaml")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	text := string(data)
	for _, pair := range [][2]string{
		{"docId:", "members:"},
		{"id: Shop/Acme.Orders/Service", "kind: type"},
		{"typeKind: class", "namespace:"},
	} {
		assert.Less(t, strings.Index(text, pair[0]), strings.Index(text, pair[1]), "%s before %s", pair[0], pair[1])
	}

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "Shop", decoded["docId"])
}

func TestEmitIsByteIdentical(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for _, dir := range []string{first, second} {
		_, err := New(Options{Dir: dir, Workers: 2}).Emit(context.Background(), sampleSets(t))
		require.NoError(t, err)
	}
	for _, name := range []string{"Shop.json", "Tools.json"} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestEmitRejectsUnsealedSet(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir()}).Emit(context.Background(), []*docs.DocumentSet{docs.NewDocumentSet("Open")})
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := New(Options{Dir: dir, Format: FormatYAML})

	path, err := e.WriteSummary(map[string]int{"members": 3})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SummaryFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"members": 3}`, string(data))
}

func TestUnitName(t *testing.T) {
	tests := map[string]string{
		"":             "global",
		"Acme.Orders":  "Acme.Orders",
		"My Namespace": "My-Namespace",
		"a/b":          "a-b",
	}
	for in, want := range tests {
		assert.Equal(t, want, UnitName(in), in)
	}
}

func TestParseFormatAndGrouping(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	assert.Equal(t, ".yaml", f.Ext())

	_, err = ParseFormat("cgf")
	assert.Error(t, err)

	g, err := ParseGrouping("namespace")
	require.NoError(t, err)
	assert.Equal(t, ByNamespace, g)

	_, err = ParseGrouping("file")
	assert.Error(t, err)
}
