package llm

import (
	"context"
	"errors"
	"fmt"
)

// LLMError is returned by every hosted-model call in this package.
type LLMError struct {
	Type    string
	Message string
	// Code is the upstream HTTP status, when known.
	Code int
	Err  error
}

const (
	ErrorTypeNetwork = "network"
	ErrorTypeAPI     = "api"
	ErrorTypeTimeout = "timeout"
	ErrorTypeParse   = "parse"
)

func (e *LLMError) Error() string {
	msg := fmt.Sprintf("llm %s error", e.Type)
	if e.Code > 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func NewNetworkError(err error) *LLMError {
	return &LLMError{Type: ErrorTypeNetwork, Message: "request to model provider failed", Err: err}
}

func NewAPIError(code int, message string) *LLMError {
	return &LLMError{Type: ErrorTypeAPI, Code: code, Message: message}
}

func NewTimeoutError(err error) *LLMError {
	return &LLMError{Type: ErrorTypeTimeout, Message: "model call timed out", Err: err}
}

func NewParseError(content string, err error) *LLMError {
	return &LLMError{Type: ErrorTypeParse, Message: content, Err: err}
}

// classify wraps a provider error with the matching LLMError kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}

// IsType reports whether err is an LLMError of the given kind.
func IsType(err error, kind string) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Type == kind
}
