// Package exclude decides which directories and files of a project tree the
// extractor never reads: build outputs and restored dependencies detected
// from project markers, plus user-configured patterns.
package exclude

import (
	"os"
	"path/filepath"
	"strings"
)

// AutoExcludeResult contains the directories to exclude and why.
type AutoExcludeResult struct {
	// Directories to exclude, relative to the project root.
	Directories []string
	// Reasons maps each directory to why it was excluded.
	Reasons map[string]string
}

// Contains reports whether rel lies inside an excluded directory.
func (r *AutoExcludeResult) Contains(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, d := range r.Directories {
		d = filepath.ToSlash(d)
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// DetectAutoExcludes scans projectRoot for build outputs and dependency
// directories. Only marker-file detection is used: a directory is excluded
// when the marker that produces it sits next to it.
func DetectAutoExcludes(projectRoot string) *AutoExcludeResult {
	result := &AutoExcludeResult{
		Directories: []string{},
		Reasons:     make(map[string]string),
	}

	_ = filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == projectRoot {
			return nil
		}

		relPath, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if result.Contains(relPath) {
				return filepath.SkipDir
			}
			switch d.Name() {
			case ".git", "node_modules", ".vs":
				return filepath.SkipDir
			}
			return nil
		}

		relDirPath, err := filepath.Rel(projectRoot, filepath.Dir(path))
		if err != nil {
			return nil
		}
		add := func(name, reason string) {
			dir := name
			if relDirPath != "." {
				dir = filepath.Join(relDirPath, name)
			}
			if dirExists(filepath.Join(projectRoot, dir)) && !contains(result.Directories, dir) {
				result.Directories = append(result.Directories, dir)
				result.Reasons[dir] = reason
			}
		}

		fileName := d.Name()
		switch {
		case isProjectFile(fileName):
			add("bin", "build output ("+fileName+" detected)")
			add("obj", "intermediate build output ("+fileName+" detected)")
		case fileName == "packages.config":
			add("packages", "restored NuGet packages (packages.config detected)")
		case fileName == "package.json":
			add("node_modules", "Node.js dependencies (package.json detected)")
		}
		return nil
	})

	return result
}

func isProjectFile(name string) bool {
	switch filepath.Ext(name) {
	case ".csproj", ".fsproj", ".vbproj":
		return true
	}
	return false
}

// Matcher applies user-configured exclude patterns to project-relative paths.
//
// A pattern is matched with filepath.Match against the whole slash-separated
// path and against each path element, so "Generated" excludes every
// directory of that name and "*.g.cs" excludes generated sources anywhere.
// A trailing "/**" matches everything below a directory.
type Matcher struct {
	patterns []string
}

// NewMatcher returns a matcher for patterns.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: append([]string(nil), patterns...)}
}

// Match reports whether rel is excluded.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		p = filepath.ToSlash(p)
		if dir, ok := strings.CutSuffix(p, "/**"); ok {
			if rel == dir || strings.HasPrefix(rel, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		for _, elem := range strings.Split(rel, "/") {
			if ok, _ := filepath.Match(p, elem); ok {
				return true
			}
		}
	}
	return false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
