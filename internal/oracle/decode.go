package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ShapeError reports a response that came back from the oracle but did not
// match the stage's expected shape. It carries the raw text so callers can
// log it; a ShapeError is a per-item failure, never a run failure.
type ShapeError struct {
	Reason string
	Raw    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("oracle response shape error: %s (raw: %.200s)", e.Reason, e.Raw)
}

// NewShapeError builds a ShapeError with the offending raw response.
func NewShapeError(reason, raw string) *ShapeError {
	return &ShapeError{Reason: reason, Raw: raw}
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].+[\\]}])\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)([\[{].+[\]}])`)
)

// ExtractJSON pulls a JSON document out of oracle output, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := bareJSON.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

// Unmarshal extracts and decodes JSON from oracle output into v. A decode
// failure is returned as a ShapeError wrapping the raw text.
func Unmarshal(text string, v any) error {
	if err := json.Unmarshal([]byte(ExtractJSON(text)), v); err != nil {
		return NewShapeError(err.Error(), text)
	}
	return nil
}
