package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignhub/internal/config"
)

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestResendTransport_SendEmail(t *testing.T) {
	var got resendEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer server.Close()

	tr := NewResendTransport(server.URL, "re_test", "shop@example.com", time.Second, 0, quietLogger())
	err := tr.SendEmail(context.Background(), "asha@example.com", "Sale", "<p>Hi Asha</p>")
	require.NoError(t, err)

	assert.Equal(t, "shop@example.com", got.From)
	assert.Equal(t, []string{"asha@example.com"}, got.To)
	assert.Equal(t, "Sale", got.Subject)
	assert.Equal(t, "<p>Hi Asha</p>", got.HTML)
}

func TestResendTransport_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer server.Close()

	tr := NewResendTransport(server.URL, "re_test", "shop@example.com", time.Second, 0, quietLogger())
	err := tr.SendEmail(context.Background(), "bad", "Sale", "body")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "resend", statusErr.Provider)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid to")
}

func TestResendTransport_ServerErrorNotRetriedByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := NewResendTransport(server.URL, "re_test", "shop@example.com", time.Second, 0, quietLogger())
	err := tr.SendEmail(context.Background(), "asha@example.com", "Sale", "body")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResendTransport_RetriesWhenConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewResendTransport(server.URL, "re_test", "shop@example.com", time.Second, 1, quietLogger())
	tr.client.RetryWaitMin = time.Millisecond
	tr.client.RetryWaitMax = time.Millisecond

	require.NoError(t, tr.SendEmail(context.Background(), "asha@example.com", "Sale", "body"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResendTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	tr := NewResendTransport(server.URL, "re_test", "shop@example.com", time.Second, 0, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tr.SendEmail(ctx, "asha@example.com", "Sale", "body")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTwilioTransport_SendSMS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "+15550000000", form.Get("From"))
		assert.Equal(t, "+15551234567", form.Get("To"))
		assert.Equal(t, "Hi Asha", form.Get("Body"))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr := NewTwilioTransport(server.URL, "AC123", "token", "+15550000000", time.Second, 0, quietLogger())
	require.NoError(t, tr.SendSMS(context.Background(), "+15551234567", "Hi Asha"))
}

func TestTwilioTransport_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tr := NewTwilioTransport(server.URL, "AC123", "wrong", "+15550000000", time.Second, 0, quietLogger())
	err := tr.SendSMS(context.Background(), "+15551234567", "Hi")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "twilio", statusErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func TestSESTransport_SendEmail(t *testing.T) {
	client := &fakeSES{}
	tr := NewSESTransportWithClient(client, "shop@example.com")

	require.NoError(t, tr.SendEmail(context.Background(), "asha@example.com", "Sale", "<p>Hi</p>"))

	require.NotNil(t, client.input)
	assert.Equal(t, "shop@example.com", *client.input.FromEmailAddress)
	assert.Equal(t, []string{"asha@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Sale", *client.input.Content.Simple.Subject.Data)
	assert.Equal(t, "<p>Hi</p>", *client.input.Content.Simple.Body.Html.Data)
}

func TestSESTransport_Error(t *testing.T) {
	tr := NewSESTransportWithClient(&fakeSES{err: errors.New("throttled")}, "shop@example.com")

	err := tr.SendEmail(context.Background(), "asha@example.com", "Sale", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSimulatedTransport(t *testing.T) {
	always := NewSimulatedTransport(1.5, 0)
	assert.NoError(t, always.SendEmail(context.Background(), "a@b.c", "s", "b"))
	assert.NoError(t, always.SendSMS(context.Background(), "+1555", "b"))

	never := NewSimulatedTransport(-1, 0)
	assert.Error(t, never.SendSMS(context.Background(), "+1555", "b"))
}

func TestSimulatedTransport_RespectsContext(t *testing.T) {
	slow := NewSimulatedTransport(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// latency is random in [0, maxLatency); a cancelled context wins unless the draw is zero
	err := slow.SendEmail(ctx, "a@b.c", "s", "b")
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestFromConfig(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Email: config.EmailConfig{Provider: "resend", BaseURL: "http://localhost", Timeout: time.Second},
			SMS:   config.SMSConfig{BaseURL: "http://localhost", Timeout: time.Second},
		}
	}

	t.Run("no credentials", func(t *testing.T) {
		set, err := FromConfig(context.Background(), base(), quietLogger())
		require.NoError(t, err)
		assert.Nil(t, set.Email)
		assert.Nil(t, set.SMS)
	})

	t.Run("resend and twilio", func(t *testing.T) {
		cfg := base()
		cfg.Email.APIKey = "re_1"
		cfg.SMS.AccountID = "AC1"
		cfg.SMS.AuthToken = "tok"
		cfg.SMS.FromNumber = "+1555"

		set, err := FromConfig(context.Background(), cfg, quietLogger())
		require.NoError(t, err)
		assert.IsType(t, &ResendTransport{}, set.Email)
		assert.IsType(t, &TwilioTransport{}, set.SMS)
	})

	t.Run("partial sms credentials", func(t *testing.T) {
		cfg := base()
		cfg.SMS.AccountID = "AC1"

		set, err := FromConfig(context.Background(), cfg, quietLogger())
		require.NoError(t, err)
		assert.Nil(t, set.SMS)
	})

	t.Run("ses", func(t *testing.T) {
		cfg := base()
		cfg.Email.Provider = "ses"
		cfg.Email.APIKey = "AKIA"
		cfg.Email.APISecret = "secret"
		cfg.Email.Region = "eu-west-1"

		set, err := FromConfig(context.Background(), cfg, quietLogger())
		require.NoError(t, err)
		assert.IsType(t, &SESTransport{}, set.Email)
	})

	t.Run("simulated", func(t *testing.T) {
		cfg := base()
		cfg.Dispatch.Simulate = true

		set, err := FromConfig(context.Background(), cfg, quietLogger())
		require.NoError(t, err)
		assert.IsType(t, &SimulatedTransport{}, set.Email)
		assert.IsType(t, &SimulatedTransport{}, set.SMS)
	})
}
