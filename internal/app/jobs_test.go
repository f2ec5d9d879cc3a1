package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignhub/internal/models"
	"campaignhub/internal/service"
)

type dispatchFunc func(ctx context.Context, campaignID string) (*models.DispatchResult, error)

func (f dispatchFunc) Dispatch(ctx context.Context, campaignID string) (*models.DispatchResult, error) {
	return f(ctx, campaignID)
}

func TestJobHandler(t *testing.T) {
	dbDown := errors.New("db down")

	tests := []struct {
		name    string
		err     error
		wantErr error
		level   logrus.Level
	}{
		{"completed", nil, nil, logrus.InfoLevel},
		{"already sent is acked", service.ErrAlreadySent, nil, logrus.InfoLevel},
		{"in progress is acked", service.ErrDispatchInProgress, nil, logrus.InfoLevel},
		{"not found is acked", &service.NotFoundError{Resource: "campaign", ID: "c-1"}, nil, logrus.InfoLevel},
		{"internal error is returned", dbDown, dbDown, logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			var got string
			handler := JobHandler(dispatchFunc(func(ctx context.Context, id string) (*models.DispatchResult, error) {
				got = id
				if tt.err != nil {
					return nil, tt.err
				}
				return &models.DispatchResult{Success: true, CampaignID: id, SentCount: 2}, nil
			}), logger)

			err := handler(context.Background(), &models.DispatchJob{CampaignID: "c-1", RequestID: "r-1"})

			assert.Equal(t, "c-1", got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "r-1", entry.Data["request_id"])
		})
	}
}
