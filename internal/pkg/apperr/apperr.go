// internal/pkg/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error classification
type Kind string

const (
	KindProductUnavailable      Kind = "product_unavailable"
	KindVariantUnavailable      Kind = "variant_unavailable"
	KindInsufficientStock       Kind = "insufficient_stock"
	KindEmptyCart               Kind = "empty_cart"
	KindInvalidCoupon           Kind = "invalid_coupon"
	KindCouponExpired           Kind = "coupon_expired"
	KindCouponLimitReached      Kind = "coupon_limit_reached"
	KindCouponNotApplicable     Kind = "coupon_not_applicable"
	KindMinOrderNotMet          Kind = "min_order_not_met"
	KindInvalidStatusTransition Kind = "invalid_status_transition"
	KindRefundExceedsBalance    Kind = "refund_exceeds_balance"
	KindPersistenceFailure      Kind = "persistence_failure"
)

// Error carries a stable kind plus a human-readable message. Stock-related
// errors additionally carry the quantity actually available so a client can
// offer a reduced-quantity retry without re-querying.
type Error struct {
	Kind      Kind
	Message   string
	Available int
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new domain error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps a store-layer fault with a kind and message
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InsufficientStock creates a stock error carrying the available quantity
func InsufficientStock(message string, available int) *Error {
	return &Error{Kind: KindInsufficientStock, Message: message, Available: available}
}

// KindOf returns the kind of err, or empty string for non-domain errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsValidation reports whether err is a caller/business-rule violation that
// must be surfaced directly without retry or compensation
func IsValidation(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != KindPersistenceFailure
}
