// Package domain holds the quote collection rules: the Quote entity, category
// filtering, import de-duplication and the sync merge policy.
//
// Errors declared here describe quote-level failures only. Adapters translate
// them into HTTP statuses or CLI exit messages.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates there is nothing to show for the request,
	// e.g. an empty collection or a category with no quotes.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates input that breaks a quote rule.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates the sync remote or the store cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError reports an empty result for an entity, optionally scoped by category.
type NotFoundError struct {
	Entity   string
	Category string
}

func (e *NotFoundError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("no %s in category %q", e.Entity, e.Category)
	}

	return fmt.Sprintf("no %s available", e.Entity)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// DisplayMessage is the text shown in place of a quote.
func (e *NotFoundError) DisplayMessage() string {
	if e.Category != "" {
		return "No quotes in this category."
	}

	return "No quotes available."
}

// NewNotFoundError creates a not found error. An empty category means the
// whole collection was empty.
func NewNotFoundError(entity, category string) error {
	return &NotFoundError{Entity: entity, Category: category}
}

// ValidationError names the offending field. Index is set when the error
// comes from an item in an imported batch, and is -1 otherwise.
type ValidationError struct {
	Field   string
	Message string
	Index   int
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("validation failed for item %d %s: %s", e.Index, e.Field, e.Message)
	case e.Index >= 0:
		return fmt.Sprintf("validation failed for item %d: %s", e.Index, e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	default:
		return "validation failed: " + e.Message
	}
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message, Index: -1}
}

// NewItemValidationError creates a validation error for element index of a batch.
func NewItemValidationError(index int, field, message string) error {
	return &ValidationError{Field: field, Message: message, Index: index}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
