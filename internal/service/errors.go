package service

import (
	"errors"
	"fmt"
)

// Kind is the caller-visible category of a failed operation
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindAlreadySent            Kind = "AlreadySent"
	KindNoRecipients           Kind = "NoRecipients"
	KindTransportNotConfigured Kind = "TransportNotConfigured"
	KindInvalidSegment         Kind = "InvalidSegment"
	KindDispatchInProgress     Kind = "DispatchInProgress"
	KindValidation             Kind = "ValidationError"
	KindInternal               Kind = "InternalError"
)

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// DispatchError is a precondition failure that stopped a dispatch before
// any recipient was contacted
type DispatchError struct {
	Kind       Kind
	CampaignID string
	Message    string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("campaign %s: %s", e.CampaignID, e.Message)
}

// Is matches any DispatchError of the same kind, so callers can write
// errors.Is(err, ErrAlreadySent).
func (e *DispatchError) Is(target error) bool {
	var t *DispatchError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrAlreadySent            = &DispatchError{Kind: KindAlreadySent}
	ErrNoRecipients           = &DispatchError{Kind: KindNoRecipients}
	ErrTransportNotConfigured = &DispatchError{Kind: KindTransportNotConfigured}
	ErrInvalidSegment         = &DispatchError{Kind: KindInvalidSegment}
	ErrDispatchInProgress     = &DispatchError{Kind: KindDispatchInProgress}
)

// ErrorKind maps any error returned by this package to its caller-visible kind
func ErrorKind(err error) Kind {
	if err == nil {
		return ""
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}

	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Kind
	}

	return KindInternal
}

// IsPrecondition reports whether err is an expected refusal rather than an
// infrastructure failure. Retrying a precondition failure cannot succeed.
func IsPrecondition(err error) bool {
	switch ErrorKind(err) {
	case KindInternal, "":
		return false
	default:
		return true
	}
}

func newDispatchError(kind Kind, campaignID, format string, args ...interface{}) *DispatchError {
	return &DispatchError{Kind: kind, CampaignID: campaignID, Message: fmt.Sprintf(format, args...)}
}
