package llm

import "fmt"

// EmbeddingError reports a failed embedding call. It is terminal for the
// query and retryable by the caller.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding call failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// ModelError reports a failed chat completion call. Terminal for
// synthesis, retryable by the caller.
type ModelError struct {
	Op  string // which call failed, e.g. "synthesize" or "analyze"
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call %s failed: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
