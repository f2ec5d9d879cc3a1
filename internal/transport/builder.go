package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
)

// simulatedSuccessRate matches the delivery rate of a healthy gateway
const simulatedSuccessRate = 0.95

// Set holds the transports the service was configured with. A nil field
// means that channel cannot be dispatched.
type Set struct {
	Email EmailTransport
	SMS   SMSTransport
}

// FromConfig builds the configured transports. A channel whose credentials
// are absent gets a nil transport rather than an error.
func FromConfig(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (Set, error) {
	var set Set

	if cfg.Dispatch.Simulate {
		sim := NewSimulatedTransport(simulatedSuccessRate, 200*time.Millisecond)
		logger.Warn("using simulated transports, no messages will leave this process")
		return Set{Email: sim, SMS: sim}, nil
	}

	if cfg.Email.APIKey != "" {
		switch cfg.Email.Provider {
		case "ses":
			ses, err := NewSESTransport(ctx, cfg.Email.APIKey, cfg.Email.APISecret, cfg.Email.Region, cfg.Email.From)
			if err != nil {
				return Set{}, fmt.Errorf("failed to build ses transport: %w", err)
			}
			set.Email = ses
		default:
			set.Email = NewResendTransport(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From,
				cfg.Email.Timeout, cfg.Email.RetryMax, logger)
		}
		logger.WithField("provider", cfg.Email.Provider).Info("email transport configured")
	}

	if cfg.SMS.AccountID != "" && cfg.SMS.AuthToken != "" && cfg.SMS.FromNumber != "" {
		set.SMS = NewTwilioTransport(cfg.SMS.BaseURL, cfg.SMS.AccountID, cfg.SMS.AuthToken, cfg.SMS.FromNumber,
			cfg.SMS.Timeout, cfg.SMS.RetryMax, logger)
		logger.Info("sms transport configured")
	}

	return set, nil
}
