package docs

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Access is a declared accessibility.
type Access string

const (
	AccessPublic            Access = "public"
	AccessProtected         Access = "protected"
	AccessInternal          Access = "internal"
	AccessPrivate           Access = "private"
	AccessProtectedInternal Access = "protected internal"
	AccessPrivateProtected  Access = "private protected"
	// AccessUnknown is recorded when the provider reports an accessibility
	// that has no mapping.
	AccessUnknown Access = "unknown"
)

// ParseAccess maps a spelled accessibility to an Access value. Both the
// keyword form ("protected internal") and the symbol-API form
// ("ProtectedOrInternal") are accepted.
func ParseAccess(s string) Access {
	switch s {
	case "public", "Public":
		return AccessPublic
	case "protected", "Protected":
		return AccessProtected
	case "internal", "Internal", "Friend":
		return AccessInternal
	case "private", "Private":
		return AccessPrivate
	case "protected internal", "internal protected", "ProtectedOrInternal", "ProtectedOrFriend":
		return AccessProtectedInternal
	case "private protected", "protected private", "ProtectedAndInternal", "ProtectedAndFriend":
		return AccessPrivateProtected
	default:
		return AccessUnknown
	}
}

// Modifiers is a set of declaration modifier flags.
type Modifiers uint16

const (
	ModStatic Modifiers = 1 << iota
	ModAbstract
	ModSealed
	ModVirtual
	ModOverride
	ModPartial
	ModReadonly
	ModConst
	ModAsync
)

// modifierNames lists flags in serialization order.
var modifierNames = []struct {
	flag Modifiers
	name string
}{
	{ModStatic, "static"},
	{ModAbstract, "abstract"},
	{ModSealed, "sealed"},
	{ModVirtual, "virtual"},
	{ModOverride, "override"},
	{ModPartial, "partial"},
	{ModReadonly, "readonly"},
	{ModConst, "const"},
	{ModAsync, "async"},
}

// Has reports whether every flag in f is set.
func (m Modifiers) Has(f Modifiers) bool { return m&f == f }

// With returns m with f added.
func (m Modifiers) With(f Modifiers) Modifiers { return m | f }

// Names returns the set flags in their fixed order.
func (m Modifiers) Names() []string {
	names := make([]string, 0, len(modifierNames))
	for _, mn := range modifierNames {
		if m.Has(mn.flag) {
			names = append(names, mn.name)
		}
	}
	return names
}

// ParseModifier returns the flag named by s, or 0 if s is not a tracked modifier.
func ParseModifier(s string) Modifiers {
	for _, mn := range modifierNames {
		if mn.name == s {
			return mn.flag
		}
	}
	return 0
}

// MarshalJSON encodes m as an ordered list of names.
func (m Modifiers) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Names())
}

// UnmarshalJSON decodes a list of modifier names.
func (m *Modifiers) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Modifiers
	for _, n := range names {
		f := ParseModifier(n)
		if f == 0 {
			return errors.Newf("unknown modifier %q", n)
		}
		out |= f
	}
	*m = out
	return nil
}

// MarshalYAML encodes m as an ordered list of names.
func (m Modifiers) MarshalYAML() (interface{}, error) {
	return m.Names(), nil
}

// Accessor is a set of property accessors.
type Accessor uint8

const (
	AccessorGet Accessor = 1 << iota
	AccessorSet
	AccessorInit
)

var accessorNames = []struct {
	flag Accessor
	name string
}{
	{AccessorGet, "get"},
	{AccessorSet, "set"},
	{AccessorInit, "init"},
}

// Has reports whether every accessor in a is present.
func (a Accessor) Has(f Accessor) bool { return a&f == f }

// Names returns the accessors in get, set, init order.
func (a Accessor) Names() []string {
	names := make([]string, 0, len(accessorNames))
	for _, an := range accessorNames {
		if a.Has(an.flag) {
			names = append(names, an.name)
		}
	}
	return names
}

// ParseAccessor returns the accessor named by s, or 0.
func ParseAccessor(s string) Accessor {
	for _, an := range accessorNames {
		if an.name == s {
			return an.flag
		}
	}
	return 0
}

// MarshalJSON encodes a as an ordered list of names.
func (a Accessor) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Names())
}

// UnmarshalJSON decodes a list of accessor names.
func (a *Accessor) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Accessor
	for _, n := range names {
		f := ParseAccessor(n)
		if f == 0 {
			return errors.Newf("unknown accessor %q", n)
		}
		out |= f
	}
	*a = out
	return nil
}

// MarshalYAML encodes a as an ordered list of names.
func (a Accessor) MarshalYAML() (interface{}, error) {
	return a.Names(), nil
}
