package llm

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

var openingFence = regexp.MustCompile("(?i)^```(?:json)?")

var errTrailingData = errors.New("unexpected data after the JSON object")

// ExtractJSON recovers one JSON object from model output. It strips a
// leading ``` or ```json fence and a trailing ``` fence, then decodes the
// text from the first '{' to the last '}'. The span is greedy, so output
// holding two separate objects yields KindMalformedJSON rather than the
// first object.
//
// A missing span yields KindNoJSONFound and an undecodable span yields
// KindMalformedJSON; both carry the original text in Raw.
func ExtractJSON(text string) (Result, error) {
	s := strings.TrimSpace(text)
	s = openingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, &Failure{Kind: KindNoJSONFound, Raw: text}
	}
	span := s[start : end+1]

	var out map[string]any
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, &Failure{Kind: KindMalformedJSON, Raw: text, Span: span, Err: err}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, &Failure{Kind: KindMalformedJSON, Raw: text, Span: span, Err: err}
	}
	return Result(out), nil
}
