package oracle

import "context"

// CallRecord captures one completed oracle call for the audit trail.
type CallRecord struct {
	Stage            string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
	Status           string // "success" or "error"
	ErrorMessage     string
	CostUSD          float64
}

// Recorder persists call records. Implementations must not block the caller;
// records are delivered asynchronously.
type Recorder interface {
	Record(ctx context.Context, rec CallRecord)
}
