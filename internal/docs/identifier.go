package docs

import (
	"strconv"
	"strings"
)

// MemberID is the primary key of an entity within a document set.
//
// Types are keyed as {assembly}/{namespace}/{name}, members extend the type
// key with .{name} and, for methods and constructors, a parenthesized list of
// parameter type names so that overloads never collide.
type MemberID string

// String implements fmt.Stringer.
func (id MemberID) String() string { return string(id) }

// ConstructorName is the member name used for instance and static constructors.
const ConstructorName = "#ctor"

// TypeID returns the identifier of a declared type.
func TypeID(assembly, namespace, name string, arity int) MemberID {
	var sb strings.Builder
	sb.WriteString(assembly)
	sb.WriteByte('/')
	sb.WriteString(namespace)
	sb.WriteByte('/')
	sb.WriteString(name)
	if arity > 0 {
		sb.WriteByte('`')
		sb.WriteString(strconv.Itoa(arity))
	}
	return MemberID(sb.String())
}

// MethodID returns the identifier of a method declared on typeID.
func MethodID(typeID MemberID, name string, arity int, params []string) MemberID {
	var sb strings.Builder
	sb.WriteString(string(typeID))
	sb.WriteByte('.')
	sb.WriteString(name)
	if arity > 0 {
		sb.WriteString("``")
		sb.WriteString(strconv.Itoa(arity))
	}
	writeSignature(&sb, params)
	return MemberID(sb.String())
}

// ConstructorID returns the identifier of a constructor declared on typeID.
func ConstructorID(typeID MemberID, params []string) MemberID {
	var sb strings.Builder
	sb.WriteString(string(typeID))
	sb.WriteByte('.')
	sb.WriteString(ConstructorName)
	writeSignature(&sb, params)
	return MemberID(sb.String())
}

// ValueMemberID returns the identifier of a property or field declared on typeID.
func ValueMemberID(typeID MemberID, name string) MemberID {
	return MemberID(string(typeID) + "." + name)
}

// NormalizeTypeName collapses whitespace in a spelled type name so that
// "Dictionary<string, int>" and "Dictionary<string,int>" identify the same
// parameter type.
func NormalizeTypeName(name string) string {
	if !strings.ContainsAny(name, " \t\r\n") {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case ' ', '\t', '\r', '\n':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var keywordAliases = map[string]string{
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"char":    "System.Char",
	"decimal": "System.Decimal",
	"double":  "System.Double",
	"float":   "System.Single",
	"int":     "System.Int32",
	"uint":    "System.UInt32",
	"nint":    "System.IntPtr",
	"nuint":   "System.UIntPtr",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"short":   "System.Int16",
	"ushort":  "System.UInt16",
	"object":  "System.Object",
	"string":  "System.String",
	"void":    "System.Void",
	"dynamic": "System.Object",
}

// keywordOf maps framework type names, with or without the System
// namespace, to the keyword used in identifiers.
var keywordOf = map[string]string{
	"Boolean": "bool",
	"Byte":    "byte",
	"SByte":   "sbyte",
	"Char":    "char",
	"Decimal": "decimal",
	"Double":  "double",
	"Single":  "float",
	"Int32":   "int",
	"UInt32":  "uint",
	"IntPtr":  "nint",
	"UIntPtr": "nuint",
	"Int64":   "long",
	"UInt64":  "ulong",
	"Int16":   "short",
	"UInt16":  "ushort",
	"Object":  "object",
	"String":  "string",
	"Void":    "void",
	"dynamic": "object",
}

// KeywordAlias returns the framework type a language keyword stands for.
func KeywordAlias(name string) (string, bool) {
	q, ok := keywordAliases[name]
	return q, ok
}

// CanonicalTypeName returns the spelling of a parameter type used in
// identifiers: whitespace removed, global:: dropped and framework types that
// have a keyword written as that keyword, at any nesting depth. "String",
// "System.String" and "global::System.String" all become "string".
func CanonicalTypeName(name string) string {
	name = NormalizeTypeName(name)
	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start >= 0 {
			sb.WriteString(canonicalName(name[start:end]))
			start = -1
		}
	}
	for i := 0; i < len(name); i++ {
		if isNameByte(name[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		sb.WriteByte(name[i])
	}
	flush(len(name))
	return sb.String()
}

func canonicalName(name string) string {
	name = strings.TrimPrefix(name, "global::")
	if kw, ok := keywordOf[strings.TrimPrefix(name, "System.")]; ok {
		return kw
	}
	return name
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == ':', c >= 0x80:
		return true
	}
	return false
}

func writeSignature(sb *strings.Builder, params []string) {
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(CanonicalTypeName(p))
	}
	sb.WriteByte(')')
}

// Canonical documentation-id prefixes, as produced by compiler front ends.
const (
	CanonicalType     = "T:"
	CanonicalMethod   = "M:"
	CanonicalProperty = "P:"
	CanonicalField    = "F:"
	CanonicalEvent    = "E:"
)

// CanonicalPrefix returns the documentation-id prefix expected for kind.
func CanonicalPrefix(kind Kind) string {
	switch kind {
	case KindType:
		return CanonicalType
	case KindMethod, KindConstructor:
		return CanonicalMethod
	case KindProperty:
		return CanonicalProperty
	case KindField:
		return CanonicalField
	default:
		return ""
	}
}

// CheckCanonicalID reports ErrInvalidMemberIdentity when a provider-assigned
// canonical id carries a prefix that disagrees with kind. An empty id is
// accepted: providers are not required to supply one.
func CheckCanonicalID(kind Kind, canonical string) error {
	if canonical == "" {
		return nil
	}
	want := CanonicalPrefix(kind)
	if len(canonical) < 2 || canonical[1] != ':' {
		return invalidIdentity(kind, canonical)
	}
	if canonical[:2] != want {
		return invalidIdentity(kind, canonical)
	}
	return nil
}
