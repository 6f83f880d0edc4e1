package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanHTML returns the concatenated text content of s with entities
// decoded. Markup is dropped; whitespace is kept as written.
func CleanHTML(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF at the end of input; the tokenizer reports nothing else
			// for an in-memory reader.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
