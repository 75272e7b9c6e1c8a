package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrUnauthorized      = errors.New("actor has no role on listing")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("listing changed, please retry")
	ErrPersistence       = errors.New("persistence failure")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrTitleRequired     = errors.New("title required")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidLocation   = errors.New("invalid location")
	ErrInvalidExpiry     = errors.New("expiry must be in the future")
)

// InvalidTransitionError carries the attempted edge so callers can render it.
type InvalidTransitionError struct {
	From ListingStatus
	To   ListingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PersistenceError wraps an unexpected failure from the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
