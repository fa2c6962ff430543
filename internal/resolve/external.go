package resolve

import (
	"strings"

	"github.com/maid-docs/maid/internal/docs"
)

// Rule recognizes names that live outside every tracked document set.
//
// A rule matches either by namespace prefix ("System" matches "System" and
// "System.IO.File") or by exact name. Link is a template where {name} expands
// to the qualified name and {lower} to its lower-cased, URL-friendly form.
type Rule struct {
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Link   string `yaml:"link,omitempty" json:"link,omitempty"`
	// MatchUsings lets an unqualified name match when the unit imports a
	// namespace covered by Prefix.
	MatchUsings bool `yaml:"match_usings,omitempty" json:"matchUsings,omitempty"`
}

func (r Rule) matches(qualified string) bool {
	if r.Name != "" && r.Name == qualified {
		return true
	}
	if r.Prefix == "" {
		return false
	}
	return qualified == r.Prefix || strings.HasPrefix(qualified, r.Prefix+".")
}

func (r Rule) link(qualified string) string {
	if r.Link == "" {
		return ""
	}
	lower := strings.ToLower(strings.ReplaceAll(qualified, "`", "-"))
	out := strings.ReplaceAll(r.Link, "{name}", qualified)
	return strings.ReplaceAll(out, "{lower}", lower)
}

// DotNetAPILink is the link template of the built-in framework rules.
const DotNetAPILink = "https://learn.microsoft.com/dotnet/api/{lower}"

// DefaultRules returns the built-in rules covering the framework namespaces.
// They match qualified names only; a configured rule with MatchUsings set
// extends a prefix to unqualified names imported by using directives.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "System", Link: DotNetAPILink},
		{Prefix: "Microsoft", Link: DotNetAPILink},
	}
}

// Catalog decides which unresolved names are known external targets.
type Catalog struct {
	rules []Rule
}

// NewCatalog returns a catalog consulting rules in order. Keyword aliases
// are always recognized, with the link of the first rule covering them.
func NewCatalog(rules []Rule) *Catalog {
	return &Catalog{rules: append([]Rule(nil), rules...)}
}

// Rules returns the configured rules.
func (c *Catalog) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Match reports whether qualified is an external name and returns its link.
func (c *Catalog) Match(qualified string) (link string, ok bool) {
	if c == nil || qualified == "" {
		return "", false
	}
	if alias, isKeyword := docs.KeywordAlias(qualified); isKeyword {
		for _, r := range c.rules {
			if r.matches(alias) {
				return r.link(alias), true
			}
		}
		return "", true
	}
	for _, r := range c.rules {
		if r.matches(qualified) {
			return r.link(qualified), true
		}
	}
	return "", false
}

// MatchUsing tries name under each imported namespace, for rules that opt
// into using-based matching.
func (c *Catalog) MatchUsing(name string, usings []string) (link string, ok bool) {
	if c == nil {
		return "", false
	}
	for _, u := range usings {
		q := u + "." + name
		for _, r := range c.rules {
			if r.MatchUsings && r.matches(q) {
				return r.link(q), true
			}
		}
	}
	return "", false
}
