package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindAuthentication  Kind = "authentication"
	KindValidation      Kind = "validation"
	KindSignature       Kind = "signature"
	KindNotFound        Kind = "not_found"
	KindExternalService Kind = "external_service"
	KindPersistence     Kind = "persistence"
)

// Error is a classified failure. Message is safe to return to callers; Err carries the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUnauthenticated         = &Error{Kind: KindAuthentication, Message: "User must be authenticated"}
	ErrReceiptDataRequired     = &Error{Kind: KindValidation, Message: "Receipt data is required"}
	ErrInvalidNotificationData = &Error{Kind: KindValidation, Message: "Invalid notification data"}
	ErrMissingSignature        = &Error{Kind: KindSignature, Message: "Missing signature header"}
	ErrInvalidSignature        = &Error{Kind: KindSignature, Message: "Invalid signature"}
	ErrUserNotFound            = &Error{Kind: KindNotFound, Message: "User not found"}
)

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func ExternalService(err error) *Error {
	return &Error{Kind: KindExternalService, Message: "external service failure", Err: err}
}

func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "persistence failure", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the caller-safe message of a classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication, KindSignature:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
