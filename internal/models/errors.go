package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the outer layers can pick a response without
// inspecting messages.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindNotFound
	KindValidation
	KindBusinessRule
	KindDuplicate
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unexpected"
	}
}

// Error is an expected failure raised by the domain or the persistence layer.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound creates a NotFound error
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a Validation error with optional field details
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// BusinessRule creates a BusinessRule error
func BusinessRule(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Duplicate creates a Duplicate error
func Duplicate(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, KindUnexpected for anything that is not an *Error.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindUnexpected
}

var (
	ErrInsufficientStock     = BusinessRule("Insufficient stock")
	ErrNegativeStock         = BusinessRule("Stock quantity cannot be negative")
	ErrNonPositiveQuantity   = BusinessRule("Quantity must be greater than zero")
	ErrActivateWithoutStock  = BusinessRule("Cannot activate product without stock")
	ErrDiscountNotBelowPrice = BusinessRule("Discount price must be less than regular price")
	ErrNegativeDiscountPrice = BusinessRule("Discount price cannot be negative")
	ErrNonPositivePrice      = BusinessRule("Price must be greater than zero")
	ErrProductDeleted        = BusinessRule("Product has been deleted")
	ErrProductDiscontinued   = BusinessRule("Discontinued products cannot be activated")

	ErrOrderNotPending       = BusinessRule("Order items can only be modified while the order is pending")
	ErrOrderItemNotFound     = NotFound("Order item not found")
	ErrOrderWithoutItems     = BusinessRule("Cannot confirm an order without items")
	ErrNegativeShippingFee   = BusinessRule("Shipping fee cannot be negative")
	ErrNegativeDiscount      = BusinessRule("Discount cannot be negative")
	ErrOrderNotDeletable     = BusinessRule("Only pending or cancelled orders can be deleted")
	ErrCancelDeliveredOrder  = BusinessRule("Cannot cancel a delivered order")
	ErrOrderAlreadyCancelled = BusinessRule("Order is already cancelled")
	ErrInvalidStatus         = Validation("Invalid status")
)
