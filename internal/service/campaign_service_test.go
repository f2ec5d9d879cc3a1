package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignhub/internal/models"
)

func newTestCampaignService(publisher JobPublisher, campaigns ...*models.Campaign) (*CampaignService, *memoryCampaigns) {
	logger, _ := test.NewNullLogger()
	repo := newMemoryCampaigns(campaigns...)
	return NewCampaignService(repo, NewTemplateService(logger), publisher, logger), repo
}

func TestCampaignService_GetCampaign(t *testing.T) {
	svc, _ := newTestCampaignService(nil, newTestCampaign("c-1", models.ChannelSMS))

	campaign, err := svc.GetCampaign(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", campaign.ID)

	_, err = svc.GetCampaign(context.Background(), "missing")
	assert.Equal(t, KindNotFound, ErrorKind(err))

	_, err = svc.GetCampaign(context.Background(), "")
	assert.Equal(t, KindValidation, ErrorKind(err))
}

func TestCampaignService_GetCampaign_RepositoryError(t *testing.T) {
	svc, repo := newTestCampaignService(nil)
	repo.GetByIDFunc = func(ctx context.Context, id string) (*models.Campaign, error) {
		return nil, errors.New("connection refused")
	}

	_, err := svc.GetCampaign(context.Background(), "c-1")
	assert.Equal(t, KindInternal, ErrorKind(err))
}

func TestCampaignService_PreviewCampaign(t *testing.T) {
	svc, _ := newTestCampaignService(nil, newTestCampaign("c-1", models.ChannelEmail))

	preview, err := svc.PreviewCampaign(context.Background(), "c-1", "Asha")
	require.NoError(t, err)
	assert.Equal(t, "Hi Asha, sale now!", preview.Body)
	assert.Equal(t, "Festive sale", preview.Subject)
}

func TestCampaignService_QueueDispatch(t *testing.T) {
	publisher := &MockPublisher{}
	svc, _ := newTestCampaignService(publisher, newTestCampaign("c-1", models.ChannelSMS))

	job, err := svc.QueueDispatch(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, "c-1", job.CampaignID)
	assert.NotEmpty(t, job.RequestID)
	assert.False(t, job.RequestedAt.IsZero())
	require.Len(t, publisher.Jobs, 1)
	assert.Same(t, job, publisher.Jobs[0])
}

func TestCampaignService_QueueDispatch_AlreadySent(t *testing.T) {
	publisher := &MockPublisher{}
	campaign := newTestCampaign("c-1", models.ChannelSMS)
	campaign.Status = models.CampaignStatusSent
	svc, _ := newTestCampaignService(publisher, campaign)

	_, err := svc.QueueDispatch(context.Background(), "c-1")
	assert.ErrorIs(t, err, ErrAlreadySent)
	assert.Equal(t, 0, publisher.Count("PublishDispatch"))
}

func TestCampaignService_QueueDispatch_NoPublisher(t *testing.T) {
	svc, _ := newTestCampaignService(nil, newTestCampaign("c-1", models.ChannelSMS))

	_, err := svc.QueueDispatch(context.Background(), "c-1")
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestCampaignService_QueueDispatch_PublishError(t *testing.T) {
	publisher := &MockPublisher{
		PublishFunc: func(ctx context.Context, job *models.DispatchJob) error {
			return errors.New("channel closed")
		},
	}
	svc, _ := newTestCampaignService(publisher, newTestCampaign("c-1", models.ChannelSMS))

	_, err := svc.QueueDispatch(context.Background(), "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.Equal(t, KindInternal, ErrorKind(err))
}
