package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// TwilioTransport sends SMS through the Twilio Messages API
type TwilioTransport struct {
	client     *retryablehttp.Client
	baseURL    string
	accountID  string
	authToken  string
	fromNumber string
}

// NewTwilioTransport creates an SMS transport for the Twilio API
func NewTwilioTransport(baseURL, accountID, authToken, fromNumber string, timeout time.Duration, retryMax int, logger logrus.FieldLogger) *TwilioTransport {
	return &TwilioTransport{
		client:     newHTTPClient(timeout, retryMax, logger),
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountID:  accountID,
		authToken:  authToken,
		fromNumber: fromNumber,
	}
}

// SendSMS implements SMSTransport
func (t *TwilioTransport) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{
		"From": {t.fromNumber},
		"To":   {to},
		"Body": {body},
	}.Encode()

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(t.accountID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return do(t.client, req, "twilio")
}
