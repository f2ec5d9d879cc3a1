package models

import "time"

// DispatchResult is the aggregate outcome of a dispatch that ran
type DispatchResult struct {
	Success       bool   `json:"success"`
	CampaignID    string `json:"campaignId,omitempty"`
	SentCount     int    `json:"sentCount"`
	FailedCount   int    `json:"failedCount"`
	SkippedCount  int    `json:"skippedCount"`
	TotalTargeted int    `json:"totalTargeted"`
}

// DispatchFailure is the outcome of a dispatch that never started. It
// carries no counters since nobody was contacted.
type DispatchFailure struct {
	Success    bool   `json:"success"`
	CampaignID string `json:"campaignId,omitempty"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
}

// DispatchJob is a queued request to dispatch a campaign
type DispatchJob struct {
	CampaignID  string    `json:"campaign_id"`
	RequestID   string    `json:"request_id"`
	RequestedAt time.Time `json:"requested_at"`
}
