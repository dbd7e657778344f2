// Package format writes command results for scripts and humans.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	JSON = "json"
	EDN  = "edn"
	Text = "text"
)

// Texter is implemented by results that have a human-readable form.
type Texter interface {
	Text() string
}

func Valid(format string) bool {
	switch strings.ToLower(format) {
	case "", JSON, EDN, Text:
		return true
	}
	return false
}

// Write renders v as json (default), edn or text. Values without a text form
// fall back to pretty JSON under the text format.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(format) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Text:
		if t, ok := v.(Texter); ok {
			s := strings.TrimRight(t.Text(), "\n")
			_, err := fmt.Fprintln(w, s)
			return err
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes one JSON document followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
