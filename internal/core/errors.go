package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrImbalancedTransaction = errors.New("imbalanced transaction")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrDuplicatePosting      = errors.New("duplicate posting")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrGameNotStarted        = errors.New("game not started")
	ErrAlreadyReversed       = errors.New("transaction already reversed")
)

// ValidationError is a caller mistake rejected before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ImbalanceError reports a posting whose debits and credits differ.
type ImbalanceError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("imbalanced transaction: debits %s != credits %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

func (e *ImbalanceError) Unwrap() error { return ErrImbalancedTransaction }

// InsufficientStockError means a consumption asked for more units than the layers hold.
// Callers clamp demand to stock first, so seeing this is a bug upstream.
type InsufficientStockError struct {
	OwnerID   int
	ProductID int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for owner %d product %d: requested %d, available %d",
		e.OwnerID, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
