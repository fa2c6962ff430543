package emit

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Format is the serialization format of emitted units.
type Format string

const (
	// FormatJSON is the default format.
	FormatJSON Format = "json"
	// FormatYAML carries the same fields in the same order as JSON.
	FormatYAML Format = "yaml"
)

// DefaultFormat is used when none is configured.
const DefaultFormat = FormatJSON

// ParseFormat parses a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.Newf("invalid format: %q (expected json or yaml)", s)
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// Ext returns the file extension of units written in f.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Grouping decides how members are split into units.
type Grouping string

const (
	// ByDocSet writes one unit per document set, named {docId}.
	ByDocSet Grouping = "docset"
	// ByNamespace writes one unit per namespace across all sets.
	ByNamespace Grouping = "namespace"
)

// ParseGrouping parses a grouping name (case-insensitive).
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docset", "":
		return ByDocSet, nil
	case "namespace":
		return ByNamespace, nil
	default:
		return "", errors.Newf("invalid grouping: %q (expected docset or namespace)", s)
	}
}

// GlobalNamespaceName names the unit of the global namespace.
const GlobalNamespaceName = "global"

// UnitName returns the base file name for a document set id or namespace:
// the global namespace becomes "global" and spaces become dashes.
func UnitName(name string) string {
	if strings.TrimSpace(name) == "" {
		return GlobalNamespaceName
	}
	name = strings.ReplaceAll(name, " ", "-")
	return strings.NewReplacer("/", "-", "\\", "-").Replace(name)
}
