package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrState        = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrProvider     = errors.New("provider failure")
	ErrIntegrity    = errors.New("integrity violation")
)

// Specializations match both themselves and their base sentinel under
// errors.Is.
var (
	ErrAlreadyDistributed  = fmt.Errorf("pool already distributed: %w", ErrState)
	ErrPoolClosed          = fmt.Errorf("pool not accepting donations: %w", ErrState)
	ErrInsufficientBalance = fmt.Errorf("insufficient custody balance: %w", ErrIntegrity)
	ErrDuplicateProposal   = fmt.Errorf("milestone already has an open proposal: %w", ErrState)
)

// ErrorCode returns the wire code handlers expose for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrUnauthorized):
		return "authorization_error"
	case errors.Is(err, ErrProvider):
		return "external_service_error"
	case errors.Is(err, ErrIntegrity):
		return "integrity_error"
	case errors.Is(err, ErrState):
		return "state_error"
	default:
		return "internal_error"
	}
}
