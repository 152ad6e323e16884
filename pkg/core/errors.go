// Package core provides the main LlamaKeeper client and memory management functionality.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidContent indicates that a memory's content is empty or
	// whitespace-only. No record is persisted when this is returned.
	ErrInvalidContent = errors.New("invalid memory content")

	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidCharacter indicates that a character reference is invalid.
	ErrInvalidCharacter = errors.New("invalid character reference")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// KeeperError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &KeeperError{
//	    Op:  "CreateMemory",
//	    Err: ErrInvalidContent,
//	}
//	// Error() returns: "llamakeeper: CreateMemory: invalid memory content"
type KeeperError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "llamakeeper: <Op>: <Err>"
func (e *KeeperError) Error() string {
	return fmt.Sprintf("llamakeeper: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with KeeperError.
func (e *KeeperError) Unwrap() error {
	return e.Err
}

// NewKeeperError creates a new KeeperError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewKeeperError("CreateMemory", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "CreateMemory", "ForgetOldMemories")
//   - err: The underlying error to wrap
//
// Returns a KeeperError, or nil if err is nil.
func NewKeeperError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KeeperError{
		Op:  op,
		Err: err,
	}
}
