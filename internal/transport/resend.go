package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// ResendTransport sends email through the Resend HTTP API
type ResendTransport struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
	from    string
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendTransport creates an email transport for the Resend API
func NewResendTransport(baseURL, apiKey, from string, timeout time.Duration, retryMax int, logger logrus.FieldLogger) *ResendTransport {
	return &ResendTransport{
		client:  newHTTPClient(timeout, retryMax, logger),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
	}
}

// SendEmail implements EmailTransport
func (t *ResendTransport) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(resendEmail{
		From:    t.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return do(t.client, req, "resend")
}
