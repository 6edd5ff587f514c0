package domain

import "errors"

var (
	ErrInvalidZone    = errors.New("invalid_zone")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
)
