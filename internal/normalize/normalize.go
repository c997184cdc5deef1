// Package normalize recovers machine-readable payloads from free-form model
// output. Models are not guaranteed to emit bare JSON: they add preambles,
// wrap payloads in Markdown code fences, or end a long prose report with a
// summary object.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// ExtractJSON returns the JSON payload inside text. A code fence labelled
// json wins; otherwise the span from the first '{' or '[' to the last '}' or
// ']' is returned. When no such span exists text is returned unchanged, so
// the caller's decode fails and reports the malformed response.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start < 0 || end < 0 || end < start {
		return text
	}
	return strings.TrimSpace(text[start : end+1])
}

// Decode extracts the JSON payload from text and unmarshals it into v.
// Syntax errors are returned as *json.SyntaxError.
func Decode(text string, v any) error {
	return json.Unmarshal([]byte(ExtractJSON(text)), v)
}

// ExtractTrailingReport parses the summary object that ends a long-form
// report. It tries opening braces from the last one backwards and returns
// the first suffix of text that is a complete JSON object, so braces in
// earlier prose never win over the final object. It never panics; absent
// means the report carries no readable summary.
func ExtractTrailingReport(text string) (map[string]any, bool) {
	raw, ok := trailingObject(text)
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

// DecodeTrailingReport is ExtractTrailingReport decoding into v.
func DecodeTrailingReport(text string, v any) bool {
	raw, ok := trailingObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// maxTrailingBytes bounds how far back from the end of the text the final
// object may start. Every '{' inside that window is a candidate, however
// many the object contains.
const maxTrailingBytes = 64 << 10

func trailingObject(text string) (string, bool) {
	tail := strings.TrimRightFunc(text, isSpace)
	if !strings.HasSuffix(tail, "}") {
		return "", false
	}

	floor := max(0, len(tail)-maxTrailingBytes)
	end := len(tail)
	for end > floor {
		i := strings.LastIndexByte(tail[floor:end], '{')
		if i < 0 {
			return "", false
		}
		i += floor
		candidate := tail[i:]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		end = i
	}
	return "", false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
