package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request describes a single text-generation call.
type Request struct {
	Model        string
	SystemPrompt string
	Content      string
	MaxTokens    int
	Temperature  float64
	TopP         float64
}

// Generator performs one non-streaming text-generation call.
type Generator interface {
	Generate(context.Context, Request) (string, error)
}

// ServiceError reports a failed call to the text-generation service.
type ServiceError struct {
	Provider string
	Cause    error
}

func (e *ServiceError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("generation service: %v", e.Cause)
	}
	return fmt.Sprintf("%s service: %v", e.Provider, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// AsServiceError wraps err as a ServiceError unless it already is one.
func AsServiceError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Provider: provider, Cause: err}
}

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")
