package symbol

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// SymbolsFileSuffix is the suffix of descriptor files read by JSONProvider.
const SymbolsFileSuffix = ".symbols.json"

// JSONProvider reads descriptors exported by an external front end. A
// project path is either a single descriptor file or a directory searched
// recursively for *.symbols.json files.
type JSONProvider struct{}

// NewJSONProvider returns a provider for descriptor files.
func NewJSONProvider() *JSONProvider { return &JSONProvider{} }

// Load implements Provider.
func (p *JSONProvider) Load(ctx context.Context, projectPath string) (*Project, error) {
	files, err := symbolFiles(projectPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.WithHint(
			errors.Newf("no %s files under %s", SymbolsFileSuffix, projectPath),
			"export descriptors with your front end or use the csharp provider")
	}

	project := &Project{Path: projectPath}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := readSymbolsFile(f)
		if err != nil {
			return nil, err
		}
		if project.Assembly == "" {
			project.Assembly = part.Assembly
		} else if part.Assembly != "" && part.Assembly != project.Assembly {
			return nil, errors.Newf("%s: assembly %q does not match %q", f, part.Assembly, project.Assembly)
		}
		project.Units = append(project.Units, part.Units...)
	}
	if project.Assembly == "" {
		project.Assembly = strings.TrimSuffix(filepath.Base(projectPath), SymbolsFileSuffix)
	}
	for ui := range project.Units {
		for di := range project.Units[ui].Descriptors {
			d := &project.Units[ui].Descriptors[di]
			if d.Assembly == "" {
				d.Assembly = project.Assembly
			}
			if d.Location.File == "" {
				d.Location.File = project.Units[ui].Path
			}
		}
	}
	return project, nil
}

func symbolFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", root)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), SymbolsFileSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	sort.Strings(files)
	return files, nil
}

func readSymbolsFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return &p, nil
}
