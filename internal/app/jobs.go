package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/queue"
	"campaignhub/internal/service"
)

// Dispatcher is the part of the dispatcher a queued job needs
type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string) (*models.DispatchResult, error)
}

// JobHandler runs queued jobs through the dispatcher. Precondition
// failures such as AlreadySent are final, so the job is acked; anything
// else is returned and the delivery is dropped without requeue.
func JobHandler(dispatcher Dispatcher, logger logrus.FieldLogger) queue.JobHandler {
	return func(ctx context.Context, job *models.DispatchJob) error {
		log := logger.WithFields(logrus.Fields{
			"campaign_id": job.CampaignID,
			"request_id":  job.RequestID,
		})

		result, err := dispatcher.Dispatch(ctx, job.CampaignID)
		if err != nil {
			if service.IsPrecondition(err) {
				log.WithField("kind", service.ErrorKind(err)).Info("dispatch job dropped")
				return nil
			}
			log.WithError(err).Error("dispatch job failed")
			return err
		}

		log.WithFields(logrus.Fields{
			"sent":    result.SentCount,
			"failed":  result.FailedCount,
			"skipped": result.SkippedCount,
		}).Info("dispatch job completed")
		return nil
	}
}
