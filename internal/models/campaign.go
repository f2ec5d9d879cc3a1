package models

import (
	"fmt"
	"time"
)

// CampaignStatus represents valid campaign statuses
type CampaignStatus string

const (
	CampaignStatusDraft CampaignStatus = "draft"
	CampaignStatusSent  CampaignStatus = "sent"
)

// Channel represents valid messaging channels
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether the channel is one the dispatcher can send through
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Segment names a customer group a campaign targets
type Segment string

const (
	SegmentAll Segment = "all"
	SegmentVIP Segment = "vip"
)

// Campaign represents a marketing campaign
type Campaign struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Channel       Channel        `json:"channel" db:"channel"`
	TargetSegment Segment        `json:"target_segment" db:"target_segment"`
	SubjectLine   *string        `json:"subject_line,omitempty" db:"subject_line"`
	Content       string         `json:"content" db:"content"`
	Status        CampaignStatus `json:"status" db:"status"`
	SentAt        *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks if the campaign fields are valid
func (c *Campaign) Validate() error {
	if !c.Channel.Valid() {
		return fmt.Errorf("invalid channel: must be 'email' or 'sms'")
	}
	if c.TargetSegment == "" {
		return fmt.Errorf("target segment is required")
	}
	if c.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// Subject returns the subject line, or empty when none was authored
func (c *Campaign) Subject() string {
	if c.SubjectLine == nil {
		return ""
	}
	return *c.SubjectLine
}

// CanDispatch checks if campaign can still be sent
func (c *Campaign) CanDispatch() bool {
	return c.Status != CampaignStatusSent
}
