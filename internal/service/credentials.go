package service

import (
	"campaignhub/internal/config"
	"campaignhub/internal/models"
)

// Credentials are the provider keys that gate which channels can be
// dispatched. They are injected at construction, never read from the
// environment by the dispatcher.
type Credentials struct {
	EmailAPIKey    string
	EmailAPISecret string
	SMSAccountID   string
	SMSAuthToken   string
	SMSFromNumber  string
}

// CredentialsFromConfig projects the recognised keys out of cfg
func CredentialsFromConfig(cfg *config.Config) Credentials {
	return Credentials{
		EmailAPIKey:    cfg.Email.APIKey,
		EmailAPISecret: cfg.Email.APISecret,
		SMSAccountID:   cfg.SMS.AccountID,
		SMSAuthToken:   cfg.SMS.AuthToken,
		SMSFromNumber:  cfg.SMS.FromNumber,
	}
}

// HasEmail reports whether an email key is present
func (c Credentials) HasEmail() bool {
	return c.EmailAPIKey != ""
}

// HasSMS reports whether every SMS key is present
func (c Credentials) HasSMS() bool {
	return c.SMSAccountID != "" && c.SMSAuthToken != "" && c.SMSFromNumber != ""
}

// Has reports whether the keys for channel are present
func (c Credentials) Has(channel models.Channel) bool {
	switch channel {
	case models.ChannelEmail:
		return c.HasEmail()
	case models.ChannelSMS:
		return c.HasSMS()
	default:
		return false
	}
}
