package transport

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a provider error response is kept
const maxErrorBody = 512

// newHTTPClient builds the provider client. retryMax of zero means a single
// attempt per message.
func newHTTPClient(timeout time.Duration, retryMax int, logger logrus.FieldLogger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = retryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	if logger != nil {
		client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				logger.WithField("host", req.URL.Host).WithField("attempt", attempt).Warn("retrying provider request")
			}
		}
	}
	// Hand the final response back instead of a generic "giving up" error
	// so the caller can report the provider's status code.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// do executes a provider request. A non-2xx response wins over the client
// error so the status code reaches the caller.
func do(client *retryablehttp.Client, req *retryablehttp.Request, provider string) error {
	resp, err := client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		if !isSuccess(resp.StatusCode) {
			return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: readErrorBody(resp)}
		}
	}
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	return nil
}

func readErrorBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(data)
}
