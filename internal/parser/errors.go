package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ParseError locates a syntax problem in a source file. Line and Column are
// 1-based; zero means the position is unknown.
type ParseError struct {
	Message string
	File    string
	Line    uint32
	Column  uint32
}

func (e *ParseError) Error() string {
	var pos string
	switch {
	case e.Line > 0 && e.File != "":
		pos = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	case e.Line > 0:
		pos = fmt.Sprintf("%d:%d", e.Line, e.Column)
	case e.File != "":
		pos = e.File
	default:
		return e.Message
	}
	return pos + ": " + e.Message
}

// UnsupportedLanguageError is returned for a language without a grammar.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return "no grammar for language " + e.Language
}

// FileReadError wraps the failure to read a source file.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// FirstError returns the first syntax error in document order, or nil when
// the tree parsed cleanly.
func (r *ParseResult) FirstError() *ParseError {
	if r.Root == nil || !r.Root.HasError() {
		return nil
	}
	n := firstErrorNode(r.Root)
	if n == nil {
		return &ParseError{Message: "syntax error", File: r.FilePath}
	}
	msg := "syntax error near " + quoteSnippet(n.Content(r.Source))
	if n.IsMissing() {
		msg = "missing " + n.Type()
	}
	start := n.StartPoint()
	return &ParseError{
		Message: msg,
		File:    r.FilePath,
		Line:    start.Row + 1,
		Column:  start.Column + 1,
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.HasError() {
			continue
		}
		if found := firstErrorNode(c); found != nil {
			return found
		}
	}
	return nil
}

func quoteSnippet(s string) string {
	const limit = 20
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return fmt.Sprintf("%q", s)
}
