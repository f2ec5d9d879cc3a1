package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campaignhub/internal/models"

	"github.com/google/uuid"
)

type campaignRepository struct {
	db DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create inserts a draft campaign, assigning an id when none is set
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	query := `
		INSERT INTO campaigns (id, name, channel, target_segment, subject_line, content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		campaign.ID,
		campaign.Name,
		campaign.Channel,
		campaign.TargetSegment,
		campaign.SubjectLine,
		campaign.Content,
		campaign.Status,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT id, name, channel, target_segment, subject_line, content, status, sent_at, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	campaign := &models.Campaign{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Channel,
		&campaign.TargetSegment,
		&campaign.SubjectLine,
		&campaign.Content,
		&campaign.Status,
		&campaign.SentAt,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// MarkSent moves a draft campaign to sent. The update only matches drafts,
// so a concurrent dispatch that already finished makes this return
// ErrStatusConflict instead of overwriting sent_at.
func (r *campaignRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	query := `
		UPDATE campaigns
		SET status = $1, sent_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, models.CampaignStatusSent, sentAt, id, models.CampaignStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark campaign sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrStatusConflict
	}

	return nil
}
