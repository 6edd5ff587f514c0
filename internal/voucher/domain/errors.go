package domain

import "errors"

var (
	ErrInvalidVoucherCode   = errors.New("invalid_voucher_code")
	ErrVoucherNotFound      = errors.New("voucher_not_found")
	ErrVoucherInactive      = errors.New("voucher_inactive")
	ErrVoucherExpired       = errors.New("voucher_expired")
	ErrVoucherNotYetActive  = errors.New("voucher_not_yet_active")
	ErrVoucherScopeMismatch = errors.New("voucher_scope_mismatch")
	ErrVoucherUsageExceeded = errors.New("voucher_usage_exceeded")
	ErrVoucherInvalidScope  = errors.New("voucher_invalid_scope")
)

var rejections = []error{
	ErrInvalidVoucherCode,
	ErrVoucherNotFound,
	ErrVoucherInactive,
	ErrVoucherExpired,
	ErrVoucherNotYetActive,
	ErrVoucherScopeMismatch,
	ErrVoucherUsageExceeded,
	ErrVoucherInvalidScope,
}

// RejectionReason returns the code of a voucher rejection, or "" when err is not one.
func RejectionReason(err error) string {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}
