// Package extract is the C# symbol provider. It discovers the sources of a
// project, parses them with tree-sitter and reports their declared elements
// as symbol descriptors.
package extract

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maid-docs/maid/internal/exclude"
	"github.com/maid-docs/maid/internal/parser"
	"github.com/maid-docs/maid/internal/symbol"
)

// Options configures a Provider.
type Options struct {
	// Workers bounds concurrent file parsing. Zero means GOMAXPROCS.
	Workers int
	// Exclude lists project-relative patterns never read.
	Exclude []string
	Logger  *zap.Logger
}

// Provider implements symbol.Provider for C# projects.
type Provider struct {
	opts    Options
	matcher *exclude.Matcher
	log     *zap.Logger
}

var _ symbol.Provider = (*Provider)(nil)

// NewProvider returns a C# provider.
func NewProvider(opts Options) *Provider {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{opts: opts, matcher: exclude.NewMatcher(opts.Exclude), log: log}
}

// Load implements symbol.Provider. projectPath is a project directory or a
// .csproj file; units are returned in path order.
func (p *Provider) Load(ctx context.Context, projectPath string) (*symbol.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, projectFile, err := locateProject(projectPath)
	if err != nil {
		return nil, err
	}
	assembly, err := assemblyName(root, projectFile)
	if err != nil {
		return nil, err
	}

	files, err := p.sourceFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.WithHint(
			errors.Newf("no C# sources under %s", root),
			"check the project path and the extract.exclude patterns")
	}
	p.log.Debug("discovered sources",
		zap.String("project", projectPath),
		zap.String("assembly", assembly),
		zap.Int("files", len(files)))

	units := make([]symbol.Unit, len(files))
	parsed := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, rel := range files {
		g.Go(func() error {
			unit, err := p.parseUnit(gctx, root, rel, assembly)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				p.log.Warn("skipping unreadable source", zap.String("file", rel), zap.Error(err))
				return nil
			}
			units[i], parsed[i] = unit, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := units[:0]
	for i, unit := range units {
		if parsed[i] {
			kept = append(kept, unit)
		}
	}
	if len(kept) == 0 {
		return nil, errors.Newf("none of the %d C# sources under %s could be read", len(files), root)
	}
	return &symbol.Project{Path: projectPath, Assembly: assembly, Units: kept}, nil
}

func (p *Provider) parseUnit(ctx context.Context, root, rel, assembly string) (symbol.Unit, error) {
	if err := ctx.Err(); err != nil {
		return symbol.Unit{}, err
	}
	ps, err := parser.NewParser(parser.CSharp)
	if err != nil {
		return symbol.Unit{}, err
	}
	defer ps.Close()

	result, err := ps.ParseFile(ctx, filepath.Join(root, rel))
	if err != nil {
		return symbol.Unit{}, errors.Wrapf(err, "parse %s", rel)
	}
	defer result.Close()
	if perr := result.FirstError(); perr != nil {
		perr.File = filepath.ToSlash(rel)
		p.log.Warn("syntax errors in source; extracting what parsed", zap.Error(perr))
	}
	return NewCSharpExtractor(result, filepath.ToSlash(rel), assembly).Extract(), nil
}

// sourceFiles returns the project-relative .cs files under root, sorted.
func (p *Provider) sourceFiles(root string) ([]string, error) {
	auto := exclude.DetectAutoExcludes(root)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || auto.Contains(rel) || p.matcher.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.LanguageForFile(path) != parser.CSharp || p.matcher.Match(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	sort.Strings(files)
	return files, nil
}

func locateProject(path string) (root, projectFile string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "project %s", path)
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ".csproj" {
			return "", "", errors.WithHint(
				errors.Newf("%s is neither a directory nor a .csproj file", path),
				"use the symbols provider for descriptor files")
		}
		return filepath.Dir(path), path, nil
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.csproj"))
	if err != nil {
		return "", "", errors.Wrap(err, "find project file")
	}
	sort.Strings(matches)
	if len(matches) > 0 {
		return path, matches[0], nil
	}
	return path, "", nil
}

func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func findChildByFieldName(node *sitter.Node, fieldName string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(fieldName)
}

func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var children []*sitter.Node
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			children = append(children, child)
		}
	}
	return children
}

// startLine returns the 1-based line a node starts on.
func startLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
