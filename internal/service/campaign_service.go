package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// JobPublisher queues a dispatch for the worker
type JobPublisher interface {
	PublishDispatch(ctx context.Context, job *models.DispatchJob) error
}

// ErrQueueUnavailable is returned by QueueDispatch when no publisher is wired
var ErrQueueUnavailable = errors.New("dispatch queue is not available")

// CampaignService handles campaign reads, previews and async dispatch requests
type CampaignService struct {
	campaignRepo repository.CampaignRepository
	templateSvc  *TemplateService
	publisher    JobPublisher
	logger       logrus.FieldLogger
}

// NewCampaignService creates a new campaign service. publisher may be nil,
// in which case QueueDispatch always fails.
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	templateSvc *TemplateService,
	publisher JobPublisher,
	logger logrus.FieldLogger,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		templateSvc:  templateSvc,
		publisher:    publisher,
		logger:       logger,
	}
}

// GetCampaign retrieves a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	if id == "" {
		return nil, &ValidationError{Message: "campaign id is required"}
	}

	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "campaign", ID: id}
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// PreviewCampaign renders a campaign for a sample recipient name
func (s *CampaignService) PreviewCampaign(ctx context.Context, id, name string) (*PreviewResult, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.templateSvc.Preview(campaign, name), nil
}

// QueueDispatch publishes a dispatch job for the worker. The cheap guards
// run here so callers hear about missing or sent campaigns right away; the
// worker runs the full guard sequence again.
func (s *CampaignService) QueueDispatch(ctx context.Context, id string) (*models.DispatchJob, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.CanDispatch() {
		return nil, newDispatchError(KindAlreadySent, id, "campaign was already sent")
	}
	if s.publisher == nil {
		return nil, ErrQueueUnavailable
	}

	job := &models.DispatchJob{
		CampaignID:  id,
		RequestID:   uuid.NewString(),
		RequestedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishDispatch(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue dispatch: %w", err)
	}

	s.logger.WithField("campaign_id", id).WithField("request_id", job.RequestID).Info("campaign dispatch queued")
	return job, nil
}
