// Package oracle wraps the external generative-text capability behind a
// single Complete interface. All four curation stages (evaluate, dedupe,
// rewrite, fact-check) plus the auxiliary generators go through it; each
// stage layers its own shape validation on top of the tolerant JSON
// extraction in this package.
package oracle

import (
	"context"
)

// Request is one completion request.
type Request struct {
	Stage       string // metric/log label, e.g. "evaluate"
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	JSONMode    bool
}

// Oracle is the generative-text capability. Responses are free text that is
// expected, but never guaranteed, to parse as stage-specific JSON.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}
