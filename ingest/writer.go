package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Writer emits one "<landing_page>\t<json>\n" line per dataset.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	wr := &Writer{w: w}
	wr.enc = json.NewEncoder(&wr.buf)
	wr.enc.SetEscapeHTML(false)
	return wr
}

// Write encodes d. Writer is not safe for concurrent use.
func (w *Writer) Write(d Dataset) error {
	w.buf.Reset()
	w.buf.WriteString(d.LandingPage)
	w.buf.WriteByte('\t')
	// Encode terminates the object with the line's newline; string values
	// never contain raw newlines.
	if err := w.enc.Encode(d); err != nil {
		return fmt.Errorf("ingest: encode %s: %w", d.ID, err)
	}
	if _, err := w.w.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("ingest: write %s: %w", d.ID, err)
	}
	return nil
}
