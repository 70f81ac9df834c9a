package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeConnector   ErrorType = "connector"
	ErrorTypeInvocation  ErrorType = "invocation"
	ErrorTypeNoResponse  ErrorType = "no_response"
	ErrorTypeUnparseable ErrorType = "unparseable"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeCache       ErrorType = "cache"
)

// ErrNoResponse is returned when the model produced no text payload at all.
var ErrNoResponse = errors.New("model returned no text")

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func InvocationError(message string, err error) *DomainError {
	return NewError(ErrorTypeInvocation, message, err)
}

func NoResponseError(message string) *DomainError {
	return NewError(ErrorTypeNoResponse, message, ErrNoResponse)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

func CacheError(message string, err error) *DomainError {
	return NewError(ErrorTypeCache, message, err)
}

// IsType reports whether err (or anything it wraps) is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if errors.As(err, &de) {
			if de.Type == errType {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// ClassificationError is the terminal failure of one Identify call. Callers are
// expected to show a generic retry message and not discriminate on the cause.
type ClassificationError struct {
	Region Region
	Err    error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for %s: %v", e.Region, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
