// Package llmjson decodes loosely formatted model output into schema-checked fields.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const (
	FailureHTMLErrorPage = "html-error-page"
	FailureTruncatedJSON = "truncated-json"
	FailureUnparseable   = "unparseable-response"
)

const (
	maxCandidates = 32
	snippetLimit  = 120
)

var (
	errNoObject  = errors.New("no JSON object found")
	errTruncated = errors.New("input ended before the object was closed")
)

// Result holds the fields that survived decoding and typing.
// Decoded is false when no JSON object could be recovered at all.
type Result struct {
	Fields   map[string]any
	Warnings []string
	Decoded  bool
}

// Parse recovers a JSON object from raw and checks it against schema.
// It never fails: an unrecoverable response yields empty fields and one warning.
func Parse(raw string, schema Schema) Result {
	obj, err := decode(raw)
	if err != nil {
		return Result{
			Fields:   map[string]any{},
			Warnings: []string{describeFailure(raw, err)},
		}
	}
	return schema.apply(obj)
}

func decode(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	obj, err := decodeObject(stripFences(text))
	if err == nil {
		return obj, nil
	}
	if stripped := strings.TrimSpace(stripHTML(text)); stripped != "" && stripped != text {
		if retried, retryErr := decodeObject(stripFences(stripped)); retryErr == nil {
			return retried, nil
		}
	}
	return nil, err
}

// decodeObject tries each balanced {...} candidate in order until one decodes.
func decodeObject(text string) (map[string]any, error) {
	var lastErr error = errNoObject
	offset := 0
	for attempt := 0; attempt < maxCandidates; attempt++ {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			return nil, lastErr
		}
		start += offset
		end := scanObject(text, start)
		if end < 0 {
			// A stray brace can swallow a complete object that follows it.
			lastErr = errTruncated
			offset = start + 1
			continue
		}

		decoder := json.NewDecoder(strings.NewReader(text[start:end]))
		decoder.UseNumber()
		var obj map[string]any
		err := decoder.Decode(&obj)
		if err == nil && obj != nil {
			return obj, nil
		}
		if err != nil {
			lastErr = err
		}
		offset = start + 1
	}
	return nil, lastErr
}

// scanObject returns the index just past the brace closing the object that
// opens at start, or -1 when the input ends first.
func scanObject(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimLeft(strings.TrimPrefix(text, "```"), "jsonJSON")
		}
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// stripHTML keeps the text content of an HTML document, dropping script and style bodies.
func stripHTML(text string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		case html.StartTagToken:
			if isRawTextTag(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(tokenizer) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawTextTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch string(name) {
	case "script", "style":
		return true
	default:
		return false
	}
}

func describeFailure(raw string, err error) string {
	code := FailureUnparseable
	switch {
	case looksLikeHTML(raw):
		code = FailureHTMLErrorPage
	case errors.Is(err, errTruncated):
		code = FailureTruncatedJSON
	}
	return fmt.Sprintf("%s: %v (response: %q)", code, err, snippet(raw))
}

func looksLikeHTML(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") || strings.Contains(lower, "</head>")
}

func snippet(raw string) string {
	trimmed := strings.TrimSpace(raw)
	runes := []rune(trimmed)
	if len(runes) <= snippetLimit {
		return trimmed
	}
	return string(runes[:snippetLimit]) + "..."
}
