package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maid-docs/maid/internal/parser"
	"github.com/maid-docs/maid/internal/symbol"
)

func parseCSharpCode(t *testing.T, code string) *parser.ParseResult {
	t.Helper()
	p, err := parser.NewParser(parser.CSharp)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	defer p.Close()

	result, err := p.Parse(context.Background(), []byte(code))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return result
}

func extractUnit(t *testing.T, code string) symbol.Unit {
	t.Helper()
	result := parseCSharpCode(t, code)
	defer result.Close()
	return NewCSharpExtractor(result, "Test.cs", "TestAssembly").Extract()
}

func findDescriptor(unit symbol.Unit, kind symbol.Kind, name string) *symbol.Descriptor {
	for i := range unit.Descriptors {
		if unit.Descriptors[i].Kind == kind && unit.Descriptors[i].Name == name {
			return &unit.Descriptors[i]
		}
	}
	return nil
}

const myClassSource = `namespace TestAssembly;

/// <summary>
/// My test class
/// </summary>
/// <trackingId>44de27be-135a-4712-b36d-f7dbcdc6290a</trackingId>
public class MyClass : MyBaseClass, IMyInterface
{
	/// <summary>
	/// my test field
	/// </summary>
	private readonly string _myField;

	/// <summary>
	/// constructor
	/// </summary>
	/// <param name="myField">my field</param>
	public MyClass(string myField)
	{
		_myField = myField;
		Console.WriteLine();
	}

	/// <summary>
	///
	/// </summary>
	public string MyField { get; set; } = string.Empty;

	/// <summary>
	/// my method
	/// </summary>
	/// <returns>this method returns <see cref="string"/>, all good</returns>
	public string GetMyField()
	{
		if (true) return string.Empty;
	}
}

/// <summary>
///
/// </summary>
public class MyBaseClass
{
}

/// <summary>
///
/// </summary>
public interface IMyInterface
{
}
`

func TestExtractMyClass(t *testing.T) {
	unit := extractUnit(t, myClassSource)

	cls := findDescriptor(unit, symbol.Class, "MyClass")
	if cls == nil {
		t.Fatalf("MyClass not found in %+v", unit.Descriptors)
	}
	if cls.Namespace != "TestAssembly" {
		t.Errorf("expected file-scoped namespace TestAssembly, got %q", cls.Namespace)
	}
	if cls.Assembly != "TestAssembly" {
		t.Errorf("expected assembly TestAssembly, got %q", cls.Assembly)
	}
	if cls.Accessibility != "public" {
		t.Errorf("expected public, got %q", cls.Accessibility)
	}
	if cls.BaseType == nil || cls.BaseType.Name != "MyBaseClass" {
		t.Errorf("expected base MyBaseClass, got %+v", cls.BaseType)
	}
	if len(cls.Interfaces) != 1 || cls.Interfaces[0].Name != "IMyInterface" {
		t.Errorf("expected interface IMyInterface, got %+v", cls.Interfaces)
	}
	if !strings.Contains(cls.Documentation, "<summary>") || !strings.Contains(cls.Documentation, "My test class") {
		t.Errorf("expected class documentation, got %q", cls.Documentation)
	}
	if strings.Contains(cls.Documentation, "///") {
		t.Errorf("comment markers should be stripped, got %q", cls.Documentation)
	}
	if cls.Location.File != "Test.cs" || cls.Location.Line != 7 {
		t.Errorf("unexpected location %+v", cls.Location)
	}

	field := findDescriptor(unit, symbol.Field, "_myField")
	if field == nil {
		t.Fatal("_myField not found")
	}
	if field.ContainingType != "MyClass" || field.Accessibility != "private" || !field.Flags.Readonly {
		t.Errorf("unexpected field %+v", field)
	}
	if field.ValueType == nil || field.ValueType.Name != "string" {
		t.Errorf("expected string field, got %+v", field.ValueType)
	}

	ctor := findDescriptor(unit, symbol.Constructor, "MyClass")
	if ctor == nil {
		t.Fatal("constructor not found")
	}
	if len(ctor.Parameters) != 1 || ctor.Parameters[0].Name != "myField" || ctor.Parameters[0].Type.Name != "string" {
		t.Errorf("unexpected constructor parameters %+v", ctor.Parameters)
	}
	if !strings.Contains(ctor.Documentation, `<param name="myField">`) {
		t.Errorf("expected param doc, got %q", ctor.Documentation)
	}

	prop := findDescriptor(unit, symbol.Property, "MyField")
	if prop == nil {
		t.Fatal("MyField property not found")
	}
	if strings.Join(prop.Accessors, ",") != "get,set" {
		t.Errorf("expected get,set accessors, got %v", prop.Accessors)
	}

	method := findDescriptor(unit, symbol.Method, "GetMyField")
	if method == nil {
		t.Fatal("GetMyField not found")
	}
	if method.ValueType == nil || method.ValueType.Name != "string" {
		t.Errorf("expected string return, got %+v", method.ValueType)
	}
	if len(method.Parameters) != 0 {
		t.Errorf("expected no parameters, got %+v", method.Parameters)
	}

	if findDescriptor(unit, symbol.Class, "MyBaseClass") == nil {
		t.Error("MyBaseClass not found")
	}
	iface := findDescriptor(unit, symbol.Interface, "IMyInterface")
	if iface == nil {
		t.Fatal("IMyInterface not found")
	}
	if iface.Documentation == "" {
		t.Error("expected interface documentation")
	}

	// Source order: the class comes before its members and the other types.
	if unit.Descriptors[0].Name != "MyClass" {
		t.Errorf("expected MyClass first, got %s", unit.Descriptors[0].Name)
	}
}

func TestExtractBlockNamespacesAndUsings(t *testing.T) {
	unit := extractUnit(t, `using System;
using System.Collections.Generic;
using static System.Math;
using Alias = System.Text.StringBuilder;

namespace Outer
{
    namespace Inner
    {
        class Hidden { }
    }

    public class Visible { }
}

class Global { }
`)

	if strings.Join(unit.Usings, ",") != "System,System.Collections.Generic" {
		t.Errorf("unexpected usings %v", unit.Usings)
	}

	hidden := findDescriptor(unit, symbol.Class, "Hidden")
	if hidden == nil || hidden.Namespace != "Outer.Inner" {
		t.Errorf("expected Hidden in Outer.Inner, got %+v", hidden)
	}
	if hidden != nil && hidden.Accessibility != "internal" {
		t.Errorf("expected default internal accessibility, got %q", hidden.Accessibility)
	}

	visible := findDescriptor(unit, symbol.Class, "Visible")
	if visible == nil || visible.Namespace != "Outer" {
		t.Errorf("expected Visible in Outer, got %+v", visible)
	}

	global := findDescriptor(unit, symbol.Class, "Global")
	if global == nil || global.Namespace != "" {
		t.Errorf("expected Global in the global namespace, got %+v", global)
	}
}

func TestExtractMembers(t *testing.T) {
	unit := extractUnit(t, `namespace Shop
{
    public abstract class Repository<T> : EntityBase<T>, IRepository<T>
    {
        public const int MaxItems = 10, MinItems = 1;

        public event EventHandler Changed;

        protected internal virtual T Find(int id) => default;

        public static async Task<T> LoadAsync(string key, CancellationToken ct = default) { return default; }

        public TOut Map<TOut>(T item, ref int count, out string error) { error = null; return default; }

        public abstract string Name { get; init; }

        public int Count => 0;

        private protected void Hook(params object[] args) { }

        public override string ToString() { return ""; }

        void Implicit() { }
    }
}
`)

	repo := findDescriptor(unit, symbol.Class, "Repository")
	if repo == nil {
		t.Fatal("Repository not found")
	}
	if repo.Arity != 1 {
		t.Errorf("expected arity 1, got %d", repo.Arity)
	}
	if !repo.Flags.Abstract {
		t.Error("expected abstract flag")
	}
	if repo.BaseType == nil || repo.BaseType.Name != "EntityBase<T>" {
		t.Errorf("expected generic base, got %+v", repo.BaseType)
	}

	for _, name := range []string{"MaxItems", "MinItems"} {
		f := findDescriptor(unit, symbol.Field, name)
		if f == nil {
			t.Fatalf("field %s not found", name)
		}
		if !f.Flags.Const || f.ValueType == nil || f.ValueType.Name != "int" {
			t.Errorf("unexpected field %+v", f)
		}
		if f.TypeArity != 1 || f.ContainingType != "Repository" {
			t.Errorf("expected containing type Repository`1, got %s/%d", f.ContainingType, f.TypeArity)
		}
	}

	if ev := findDescriptor(unit, symbol.Event, "Changed"); ev == nil {
		t.Error("event Changed not found")
	}

	find := findDescriptor(unit, symbol.Method, "Find")
	if find == nil || find.Accessibility != "protected internal" || !find.Flags.Virtual {
		t.Errorf("unexpected Find %+v", find)
	}

	load := findDescriptor(unit, symbol.Method, "LoadAsync")
	if load == nil || !load.Flags.Static || !load.Flags.Async {
		t.Fatalf("unexpected LoadAsync %+v", load)
	}
	if got := strings.Join(load.ParameterTypes(), ","); got != "string,CancellationToken" {
		t.Errorf("unexpected LoadAsync parameter types %q", got)
	}

	mapper := findDescriptor(unit, symbol.Method, "Map")
	if mapper == nil {
		t.Fatal("Map not found")
	}
	if mapper.Arity != 1 {
		t.Errorf("expected method arity 1, got %d", mapper.Arity)
	}
	if got := strings.Join(mapper.ParameterTypes(), ","); got != "T,int@,string@" {
		t.Errorf("unexpected Map parameter types %q", got)
	}
	if mapper.Parameters[1].Modifier != "ref" || mapper.Parameters[2].Modifier != "out" {
		t.Errorf("unexpected modifiers %+v", mapper.Parameters)
	}

	name := findDescriptor(unit, symbol.Property, "Name")
	if name == nil || strings.Join(name.Accessors, ",") != "get,init" || !name.Flags.Abstract {
		t.Errorf("unexpected Name %+v", name)
	}

	count := findDescriptor(unit, symbol.Property, "Count")
	if count == nil || strings.Join(count.Accessors, ",") != "get" {
		t.Errorf("expression-bodied property should be get-only, got %+v", count)
	}

	hook := findDescriptor(unit, symbol.Method, "Hook")
	if hook == nil || hook.Accessibility != "private protected" {
		t.Fatalf("unexpected Hook %+v", hook)
	}
	if len(hook.Parameters) != 1 || hook.Parameters[0].Modifier != "params" {
		t.Errorf("expected params parameter, got %+v", hook.Parameters)
	}

	toString := findDescriptor(unit, symbol.Method, "ToString")
	if toString == nil || toString.Overrides == nil {
		t.Fatalf("expected override ref on ToString, got %+v", toString)
	}
	if toString.Overrides.ContainingType == nil || toString.Overrides.ContainingType.Name != "EntityBase<T>" {
		t.Errorf("override should target the base class, got %+v", toString.Overrides)
	}

	implicit := findDescriptor(unit, symbol.Method, "Implicit")
	if implicit == nil || implicit.Accessibility != "private" {
		t.Errorf("expected private default, got %+v", implicit)
	}
}

func TestExtractAttributes(t *testing.T) {
	unit := extractUnit(t, `namespace Api
{
    [Serializable]
    [Route("api/items", Order = 2)]
    public class ItemsController
    {
        [Obsolete("use V2", true)]
        [Range(typeof(int), 1, 1.5)]
        public void Get() { }
    }
}
`)

	cls := findDescriptor(unit, symbol.Class, "ItemsController")
	if cls == nil {
		t.Fatal("ItemsController not found")
	}
	if len(cls.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %+v", cls.Attributes)
	}
	if cls.Attributes[0].Name != "Serializable" || len(cls.Attributes[0].Arguments) != 0 {
		t.Errorf("unexpected first attribute %+v", cls.Attributes[0])
	}
	route := cls.Attributes[1]
	if route.Name != "Route" || route.Type.Name != "Route" || len(route.Arguments) != 2 {
		t.Fatalf("unexpected Route attribute %+v", route)
	}
	if route.Arguments[0].Type != "string" || route.Arguments[0].Value != `"api/items"` {
		t.Errorf("unexpected first argument %+v", route.Arguments[0])
	}
	if route.Arguments[1].Type != "int" {
		t.Errorf("named argument type should come from its value, got %+v", route.Arguments[1])
	}

	get := findDescriptor(unit, symbol.Method, "Get")
	if get == nil || len(get.Attributes) != 2 {
		t.Fatalf("unexpected Get %+v", get)
	}
	obsolete := get.Attributes[0]
	if obsolete.Arguments[0].Type != "string" || obsolete.Arguments[1].Type != "bool" {
		t.Errorf("unexpected Obsolete arguments %+v", obsolete.Arguments)
	}
	rng := get.Attributes[1]
	var types []string
	for _, a := range rng.Arguments {
		types = append(types, a.Type)
	}
	if strings.Join(types, ",") != "System.Type,int,double" {
		t.Errorf("unexpected Range argument types %v", types)
	}
}

func TestExtractSkippedKinds(t *testing.T) {
	unit := extractUnit(t, `namespace Kinds
{
    public struct Point { public int X; }
    public enum Color { Red, Green = 2 }
    public delegate void Handler(int code);
    public record Person(string First, string Last);
    public interface IShape { double Area(); }

    public class Outer
    {
        public class Inner { public void Run() { } }
    }
}
`)

	if findDescriptor(unit, symbol.Struct, "Point") == nil {
		t.Error("struct should be reported")
	}
	if findDescriptor(unit, symbol.Enum, "Color") == nil {
		t.Error("enum should be reported")
	}
	if findDescriptor(unit, symbol.EnumMember, "Green") == nil {
		t.Error("enum members should be reported")
	}
	if findDescriptor(unit, symbol.Delegate, "Handler") == nil {
		t.Error("delegate should be reported")
	}

	if findDescriptor(unit, symbol.Record, "Person") == nil {
		t.Fatal("record not found")
	}
	ctor := findDescriptor(unit, symbol.Constructor, "Person")
	if ctor == nil || len(ctor.Parameters) != 2 {
		t.Errorf("expected positional constructor, got %+v", ctor)
	}
	first := findDescriptor(unit, symbol.Property, "First")
	if first == nil || strings.Join(first.Accessors, ",") != "get,init" {
		t.Errorf("expected init-only positional property, got %+v", first)
	}

	area := findDescriptor(unit, symbol.Method, "Area")
	if area == nil || area.Accessibility != "public" || area.ContainingType != "IShape" {
		t.Errorf("interface members default to public, got %+v", area)
	}

	inner := findDescriptor(unit, symbol.Class, "Outer+Inner")
	if inner == nil {
		t.Fatal("nested type not found")
	}
	run := findDescriptor(unit, symbol.Method, "Run")
	if run == nil || run.ContainingType != "Outer+Inner" {
		t.Errorf("expected Run on Outer+Inner, got %+v", run)
	}
}

func TestProviderLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("Shop.csproj", `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <AssemblyName>Acme.Shop</AssemblyName>
  </PropertyGroup>
</Project>`)
	write("Models/Order.cs", "namespace Shop.Models { public class Order { } }")
	write("Cart.cs", "namespace Shop { public class Cart { } }")
	write("obj/Debug/Generated.cs", "class Generated { }")
	write("Legacy/Old.g.cs", "class Old { }")

	p := NewProvider(Options{Workers: 2, Exclude: []string{"*.g.cs"}})
	project, err := p.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if project.Assembly != "Acme.Shop" {
		t.Errorf("expected assembly from csproj, got %q", project.Assembly)
	}
	var paths []string
	for _, u := range project.Units {
		paths = append(paths, u.Path)
	}
	if strings.Join(paths, ",") != "Cart.cs,Models/Order.cs" {
		t.Errorf("unexpected units %v", paths)
	}
	if project.Units[1].Descriptors[0].Assembly != "Acme.Shop" {
		t.Errorf("descriptors should carry the assembly, got %+v", project.Units[1].Descriptors[0])
	}

	byFile, err := p.Load(context.Background(), filepath.Join(dir, "Shop.csproj"))
	if err != nil {
		t.Fatalf("Load by project file failed: %v", err)
	}
	if len(byFile.Units) != 2 {
		t.Errorf("expected 2 units, got %d", len(byFile.Units))
	}
}

func TestProviderLoadErrors(t *testing.T) {
	p := NewProvider(Options{})

	if _, err := p.Load(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing project")
	}
	if _, err := p.Load(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error for a project without sources")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "A.cs"), []byte("class A { }"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(ctx, dir); err == nil {
		t.Error("expected error for a cancelled context")
	}
}

func TestProviderLoadSkipsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cart.cs"), []byte("class Cart { }"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "gone.txt"), filepath.Join(dir, "Dangling.cs")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	p := NewProvider(Options{Logger: zap.New(core)})
	project, err := p.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("one unreadable file must not fail the project: %v", err)
	}
	if len(project.Units) != 1 || project.Units[0].Path != "Cart.cs" {
		t.Errorf("expected only Cart.cs, got %+v", project.Units)
	}
	skipped := logs.FilterMessage("skipping unreadable source").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["file"] != "Dangling.cs" {
		t.Errorf("expected one skip warning for Dangling.cs, got %+v", skipped)
	}

	if err := os.Remove(filepath.Join(dir, "Cart.cs")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(context.Background(), dir); err == nil {
		t.Error("expected error when no source can be read")
	}
}

func TestAssemblyNameFallbacks(t *testing.T) {
	dir := t.TempDir()
	proj := filepath.Join(dir, "Widgets.csproj")
	if err := os.WriteFile(proj, []byte(`<Project><PropertyGroup><AssemblyName>$(MSBuildProjectName).Core</AssemblyName></PropertyGroup></Project>`), 0o644); err != nil {
		t.Fatal(err)
	}
	name, err := assemblyName(dir, proj)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Widgets" {
		t.Errorf("expected project file name for MSBuild expressions, got %q", name)
	}

	name, err = assemblyName(filepath.Join(dir), "")
	if err != nil {
		t.Fatal(err)
	}
	if name != filepath.Base(dir) {
		t.Errorf("expected directory name, got %q", name)
	}
}

func TestExtractPartialAccessibility(t *testing.T) {
	unit := extractUnit(t, `
namespace Shop
{
    public partial class Baz { }
    partial class Baz { }
}
`)

	var got []string
	for _, d := range unit.Descriptors {
		if d.Kind == symbol.Class && d.Name == "Baz" {
			got = append(got, d.Accessibility)
		}
	}
	if strings.Join(got, "|") != "public|" {
		t.Errorf("expected the undeclared part to leave access empty, got %q", got)
	}
}
