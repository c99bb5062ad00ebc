package core

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a caller asks to embed blank text.
// This is a caller error, never retried.
var ErrEmptyInput = errors.New("input text is empty")

// ProviderError wraps a transient failure from an external provider
// (embedding API, vector store RPC). Retryable.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AuthError indicates a missing or invalid token for an external source.
// Sources failing auth are skipped, not fatal.
type AuthError struct {
	Source string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth for source %s: %v", e.Source, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// PersistenceError records a failed write. It is attached to
// IndexingResult.Errors rather than propagated up the stack.
type PersistenceError struct {
	Entity string // "message_reference", "memory_chunk", "knowledge_entry"
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
