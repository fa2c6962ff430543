package config

import (
	"github.com/maid-docs/maid/internal/emit"
	"github.com/maid-docs/maid/internal/resolve"
)

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Projects: []string{"."},
		Provider: ProviderCSharp,
		Extract: ExtractConfig{
			Exclude: []string{
				"*.g.cs",
				"*.Designer.cs",
				"Generated",
			},
		},
		Output: OutputConfig{
			Dir:      "docs/api",
			Format:   string(emit.DefaultFormat),
			Grouping: string(emit.ByDocSet),
		},
		External: resolve.DefaultRules(),
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	if len(loaded.Projects) > 0 {
		result.Projects = loaded.Projects
	} else {
		result.Projects = defaults.Projects
	}

	if loaded.Provider != "" {
		result.Provider = loaded.Provider
	} else {
		result.Provider = defaults.Provider
	}

	result.Extract = mergeExtractConfig(loaded.Extract, defaults.Extract)
	result.Output = mergeOutputConfig(loaded.Output, defaults.Output)

	// User rules are consulted before the built-in ones.
	result.External = append(append([]resolve.Rule(nil), loaded.External...), defaults.External...)

	result.Catalog = loaded.Catalog
	if result.Catalog.Enabled == nil {
		result.Catalog.Enabled = defaults.Catalog.Enabled
	}
	if result.Catalog.Path == "" {
		result.Catalog.Path = defaults.Catalog.Path
	}

	return result
}

func mergeExtractConfig(loaded, defaults ExtractConfig) ExtractConfig {
	result := ExtractConfig{}

	// Workers: use loaded if non-zero
	if loaded.Workers != 0 {
		result.Workers = loaded.Workers
	} else {
		result.Workers = defaults.Workers
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := defaults
	if loaded.Dir != "" {
		result.Dir = loaded.Dir
	}
	if loaded.Format != "" {
		result.Format = loaded.Format
	}
	if loaded.Grouping != "" {
		result.Grouping = loaded.Grouping
	}
	return result
}

// ValidProviders lists the valid values for the provider setting
var ValidProviders = []string{ProviderCSharp, ProviderSymbols}

// IsValidProvider checks if the given provider name is valid
func IsValidProvider(provider string) bool {
	for _, valid := range ValidProviders {
		if provider == valid {
			return true
		}
	}
	return false
}
