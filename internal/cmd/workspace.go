package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/config"
)

// workspace is the loaded configuration and the directories it is relative to.
type workspace struct {
	cfg *config.Config
	// root holds the .maid directory; relative paths in cfg resolve here.
	root      string
	configDir string
}

// loadWorkspace loads the config named by --config, or the one found by
// walking up from the working directory, or the defaults rooted at the
// working directory.
func loadWorkspace() (*workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "get working directory")
	}
	return loadWorkspaceFrom(cwd, configPath)
}

func loadWorkspaceFrom(cwd, explicit string) (*workspace, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return nil, errors.Wrap(err, "resolve config path")
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, errors.Wrapf(config.ErrConfigNotFound, "%s", explicit)
		}
		cfg, err := config.LoadFromPath(abs)
		if err != nil {
			return nil, err
		}
		configDir := filepath.Dir(abs)
		return &workspace{cfg: cfg, root: filepath.Dir(configDir), configDir: configDir}, nil
	}

	configDir, err := config.FindConfigDir(cwd)
	if errors.Is(err, config.ErrConfigNotFound) {
		return &workspace{
			cfg:       config.DefaultConfig(),
			root:      cwd,
			configDir: filepath.Join(cwd, config.ConfigDirName),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromPath(filepath.Join(configDir, config.ConfigFileName))
	if err != nil {
		return nil, err
	}
	return &workspace{cfg: cfg, root: filepath.Dir(configDir), configDir: configDir}, nil
}

// path resolves p against the workspace root.
func (w *workspace) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.root, p)
}

// catalogPath returns the catalog database location.
func (w *workspace) catalogPath() string {
	return w.cfg.CatalogPath(w.configDir)
}

// openCatalog opens an existing catalog for the query commands.
func (w *workspace) openCatalog() (*catalog.Catalog, error) {
	path := w.catalogPath()
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(catalog.ErrNotFound, "no catalog at %s", path),
			"run 'maid extract' first")
	}
	return catalog.Open(path)
}
