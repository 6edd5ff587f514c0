package domain

import (
	"errors"

	"github.com/smallbiznis/campstay/internal/pricing"
)

var (
	ErrEntityNotFound         = errors.New("entity_not_found")
	ErrRecalculationFailed    = errors.New("recalculation_failed")
	ErrInvariantViolation     = errors.New("invariant_violation")
	ErrConcurrentModification = errors.New("concurrent_modification")
	ErrBookingLocked          = errors.New("booking_locked")
	ErrBookingCancelled       = errors.New("booking_cancelled")
	ErrInvalidLineMetadata    = errors.New("invalid_line_metadata")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidPrice           = errors.New("invalid_price")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
	ErrInvalidActor           = errors.New("invalid_actor")
	ErrInvalidItem            = errors.New("invalid_item")
	ErrNotAnAddon             = errors.New("not_an_addon")

	ErrInvalidPricingMode = pricing.ErrInvalidPricingMode
)

type notFoundError struct {
	entity string
}

func (e notFoundError) Error() string { return e.entity + "_not_found" }

func (e notFoundError) Is(target error) bool { return target == ErrEntityNotFound }

// These all match ErrEntityNotFound through errors.Is.
var (
	ErrBookingNotFound     error = notFoundError{entity: "booking"}
	ErrTentNotFound        error = notFoundError{entity: "tent"}
	ErrItemNotFound        error = notFoundError{entity: "item"}
	ErrMenuProductNotFound error = notFoundError{entity: "menu_product"}
)
