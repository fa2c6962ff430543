// Package xmldoc parses XML documentation comments into an ordered sequence
// of typed nodes.
//
// Input is the text of a documentation comment with the comment markers
// already stripped, for example:
//
//	<summary>Adds two numbers.</summary>
//	<param name="a">first operand</param>
//	<returns>the sum, see <see cref="int"/></returns>
//
// The fragment may have several top-level elements or be wrapped in a single
// <member> or <doc> element. Recognized tags become nodes in source order;
// anything else at the top level is ignored. Inline markup inside a
// recognized tag is kept as markup text so renderers can resolve it later.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind identifies a documentation node.
type Kind string

const (
	Summary   Kind = "summary"
	Param     Kind = "param"
	Returns   Kind = "returns"
	Example   Kind = "example"
	Remarks   Kind = "remarks"
	Exception Kind = "exception"
	SeeAlso   Kind = "seealso"
	Include   Kind = "include"
)

var recognized = map[string]Kind{
	"summary":   Summary,
	"param":     Param,
	"returns":   Returns,
	"example":   Example,
	"remarks":   Remarks,
	"exception": Exception,
	"seealso":   SeeAlso,
	"include":   Include,
}

// Node is one parsed documentation element.
type Node struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Name is the name attribute of a param node.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Cref is the cref attribute of exception and seealso nodes.
	Cref string `json:"cref,omitempty" yaml:"cref,omitempty"`
	// File and Path are the attributes of an include node.
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Content string `json:"content" yaml:"content"`
}

// ErrMalformed is returned when the comment text is not well-formed markup.
var ErrMalformed = errors.New("malformed documentation comment")

// wrapper elements whose children are treated as top-level tags
var wrappers = map[string]bool{"member": true, "doc": true}

const rootTag = "maid-doc-root"

// Parse parses raw documentation comment text. Empty or whitespace-only
// input yields no nodes and no error.
func Parse(raw string) ([]Node, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dec := xml.NewDecoder(strings.NewReader("<" + rootTag + ">" + raw + "</" + rootTag + ">"))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity

	var (
		nodes []Node
		depth int
		top   = 1 // depth at which recognized tags are collected
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "parse documentation"), ErrMalformed)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == top+1 && wrappers[t.Name.Local] && len(nodes) == 0 {
				top++
				continue
			}
			if depth != top+1 {
				continue
			}
			kind, ok := recognized[t.Name.Local]
			if !ok {
				if err := dec.Skip(); err != nil {
					return nil, errors.Mark(errors.Wrap(err, "parse documentation"), ErrMalformed)
				}
				depth--
				continue
			}
			node, err := readNode(dec, kind, t)
			if err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "parse <%s>", t.Name.Local), ErrMalformed)
			}
			nodes = append(nodes, node)
			depth--
		case xml.EndElement:
			depth--
		}
	}

	return nodes, nil
}

// readNode consumes the content of start up to its matching end element.
func readNode(dec *xml.Decoder, kind Kind, start xml.StartElement) (Node, error) {
	node := Node{Kind: kind}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "name":
			node.Name = a.Value
		case "cref":
			node.Cref = a.Value
		case "file":
			node.File = a.Value
		case "path":
			node.Path = a.Value
		}
	}

	// markup keeps inline elements with text and attribute values escaped;
	// plain is the decoded text, used when the node has no inline elements.
	var markup, plain bytes.Buffer
	buf := &markup
	inline := false
	var pending *xml.StartElement
	flush := func() {
		if pending != nil {
			writeStart(buf, *pending, false)
			pending = nil
		}
	}

	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return Node{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			el := t.Copy()
			pending = &el
			inline = true
			depth++
		case xml.EndElement:
			if depth == 0 {
				flush()
				content := plain.String()
				if inline {
					content = markup.String()
				}
				node.Content = strings.TrimSpace(content)
				return node, nil
			}
			if pending != nil {
				writeStart(buf, *pending, true)
				pending = nil
			} else {
				buf.WriteString("</")
				buf.WriteString(qualified(t.Name))
				buf.WriteByte('>')
			}
			depth--
		case xml.CharData:
			flush()
			plain.Write(t)
			textEscaper.WriteString(buf, string(t))
		}
	}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func writeStart(buf *bytes.Buffer, el xml.StartElement, selfClose bool) {
	buf.WriteByte('<')
	buf.WriteString(qualified(el.Name))
	for _, a := range el.Attr {
		buf.WriteByte(' ')
		buf.WriteString(qualified(a.Name))
		buf.WriteString(`="`)
		attrEscaper.WriteString(buf, a.Value)
		buf.WriteByte('"')
	}
	if selfClose {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
