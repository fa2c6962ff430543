package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/maid-docs/maid/internal/emit"
	"github.com/maid-docs/maid/internal/resolve"
)

// ConfigFileName is the name of the maid configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the maid configuration directory
const ConfigDirName = ".maid"

// Provider names accepted in the provider setting.
const (
	ProviderCSharp  = "csharp"
	ProviderSymbols = "symbols"
)

// Config holds all maid configuration
type Config struct {
	// Projects are project directories, .csproj files or descriptor files,
	// relative to the directory holding .maid.
	Projects []string       `yaml:"projects"`
	Provider string         `yaml:"provider"`
	Extract  ExtractConfig  `yaml:"extract"`
	Output   OutputConfig   `yaml:"output"`
	External []resolve.Rule `yaml:"external"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// ExtractConfig holds configuration for source discovery and the pipeline
type ExtractConfig struct {
	// Workers bounds concurrency; 0 means one per CPU.
	Workers int      `yaml:"workers"`
	Exclude []string `yaml:"exclude"`
}

// OutputConfig holds configuration for emitted units
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Format   string `yaml:"format"`
	Grouping string `yaml:"grouping"`
}

// CatalogConfig holds configuration for the catalog of sealed sets
type CatalogConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// Path is the database file; empty means catalog.db in the config directory.
	Path string `yaml:"path,omitempty"`
}

// IsEnabled reports whether the catalog is used. It is on unless disabled
// explicitly.
func (c CatalogConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .maid/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "reading config file")
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .maid directory by walking up from startDir.
// Returns the path to the .maid directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving path")
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .maid directory if it doesn't exist.
// Returns the path to the .maid directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving path")
	}

	configDir := filepath.Join(absDir, ConfigDirName)
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", errors.Newf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", errors.Wrap(err, "creating config directory")
	}
	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	if !IsValidProvider(cfg.Provider) {
		return errors.Wrapf(ErrInvalidConfig, "provider must be one of %v, got %q",
			ValidProviders, cfg.Provider)
	}

	if cfg.Extract.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "extract.workers must be non-negative, got %d",
			cfg.Extract.Workers)
	}

	if cfg.Output.Dir == "" {
		return errors.Wrap(ErrInvalidConfig, "output.dir must not be empty")
	}
	if _, err := emit.ParseFormat(cfg.Output.Format); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "output.format: %v", err)
	}
	if _, err := emit.ParseGrouping(cfg.Output.Grouping); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "output.grouping: %v", err)
	}

	for i, r := range cfg.External {
		if r.Prefix == "" && r.Name == "" {
			return errors.Wrapf(ErrInvalidConfig, "external[%d] needs a prefix or a name", i)
		}
		if r.MatchUsings && r.Prefix == "" {
			return errors.Wrapf(ErrInvalidConfig, "external[%d]: match_usings requires a prefix", i)
		}
	}
	return nil
}

// SaveDefault writes the default configuration to .maid/config.yaml in workDir.
// Creates the .maid directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", errors.Newf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	cfg.External = nil
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, "marshaling config")
	}

	header := "# maid configuration\n" +
		"# external: rules tried before the built-in System and Microsoft rules.\n" +
		"# The built-in rules only match qualified names such as System.Exception;\n" +
		"# add match_usings to also match Exception under `using System;`, e.g.\n" +
		"#   - prefix: Newtonsoft.Json\n" +
		"#     link: https://www.newtonsoft.com/json/help/html/T_{name}.htm\n" +
		"#   - prefix: System\n" +
		"#     link: " + resolve.DotNetAPILink + "\n" +
		"#     match_usings: true\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", errors.Wrap(err, "writing config file")
	}
	return configPath, nil
}

// CatalogPath returns the catalog database path for a config found in
// configDir.
func (c *Config) CatalogPath(configDir string) string {
	if c.Catalog.Path == "" {
		return filepath.Join(configDir, "catalog.db")
	}
	if filepath.IsAbs(c.Catalog.Path) {
		return c.Catalog.Path
	}
	return filepath.Join(filepath.Dir(configDir), c.Catalog.Path)
}
