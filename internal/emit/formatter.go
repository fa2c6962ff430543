package emit

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Formatter writes a value in one serialization format.
type Formatter interface {
	Write(w io.Writer, v any) error
}

// JSONFormatter writes indented JSON. Markup in documentation text is not
// HTML-escaped.
type JSONFormatter struct{}

// Write implements Formatter.
func (JSONFormatter) Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// YAMLFormatter writes YAML with two-space indentation.
type YAMLFormatter struct{}

// Write implements Formatter.
func (YAMLFormatter) Write(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// GetFormatter returns the formatter for f.
func GetFormatter(f Format) (Formatter, error) {
	switch f {
	case FormatJSON:
		return JSONFormatter{}, nil
	case FormatYAML:
		return YAMLFormatter{}, nil
	default:
		return nil, errors.Newf("unsupported format: %s", f)
	}
}

// Marshal serializes v in format f.
func Marshal(f Format, v any) ([]byte, error) {
	formatter, err := GetFormatter(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := formatter.Write(&buf, v); err != nil {
		return nil, errors.Wrapf(err, "encode %s", f)
	}
	return buf.Bytes(), nil
}
