package services

import (
	"errors"
	"fmt"

	. "spruce/internal/models"
)

// Error taxonomy. Handlers map these to HTTP statuses; everything else is a
// plain internal error.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("state conflict")
	ErrGateway      = errors.New("payment gateway failure")
)

// DomainError carries a user-facing message while matching one of the
// taxonomy sentinels through errors.Is.
type DomainError struct {
	Kind    error
	Message string
}

func NewDomainError(kind error, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Is(target error) bool {
	return target == e.Kind
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// MissingPhotosError rejects a completion submission lacking photo evidence.
// Kind names the first missing photo kind, before before after.
type MissingPhotosError struct {
	Kind PhotoKind
}

func (e *MissingPhotosError) Error() string {
	return fmt.Sprintf("completion requires at least one %q photo", e.Kind)
}

func (e *MissingPhotosError) Is(target error) bool {
	return target == ErrValidation
}
