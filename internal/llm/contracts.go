package llm

import (
	"context"
	"fmt"
)

// CompletionRequest describes one chat-completion call.
type CompletionRequest struct {
	System      string
	User        string
	JSONMode    bool // request response_format json_object; not every backend accepts it
	Temperature float32
	MaxTokens   int
}

// CompletionClient is the interface the validation pipeline depends on.
// Implementations are stateless and safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// AdapterError wraps a failed completion call: transport errors, auth or
// rate-limit rejections, and any non-2xx response.
type AdapterError struct {
	Status int    // HTTP status, 0 on transport failure
	Body   string // response body (truncated), "" on transport failure
	Err    error
}

func (e *AdapterError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion API status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("completion API call failed: %v", e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
