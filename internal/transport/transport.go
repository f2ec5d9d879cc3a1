// Package transport delivers rendered campaign messages through email and
// SMS providers.
package transport

import (
	"context"
	"fmt"
)

// EmailTransport sends one email to one recipient
type EmailTransport interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMSTransport sends one text message to one recipient
type SMSTransport interface {
	SendSMS(ctx context.Context, to, body string) error
}

// StatusError is returned when a provider answers with a non-2xx status
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned unexpected status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
