package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"campaignhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var campaignColumns = []string{
	"id", "name", "channel", "target_segment", "subject_line", "content", "status", "sent_at", "created_at", "updated_at",
}

func TestCampaignRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(campaignColumns).
			AddRow("c-1", "Diwali Sale", "email", "vip", "Big sale", "Hi {{name}}", "draft", nil, now, now))

	campaign, err := repo.GetByID(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, "c-1", campaign.ID)
	assert.Equal(t, models.ChannelEmail, campaign.Channel)
	assert.Equal(t, models.SegmentVIP, campaign.TargetSegment)
	assert.Equal(t, "Big sale", campaign.Subject())
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Nil(t, campaign.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	campaign, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCampaignRepository_GetByID_DatabaseError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WithArgs("c-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "c-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCampaignRepository_Create_AssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO campaigns")).
		WithArgs(sqlmock.AnyArg(), "Welcome", models.ChannelSMS, models.SegmentAll, nil, "Hi {{name}}", models.CampaignStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	campaign := &models.Campaign{
		Name:          "Welcome",
		Channel:       models.ChannelSMS,
		TargetSegment: models.SegmentAll,
		Content:       "Hi {{name}}",
	}
	require.NoError(t, repo.Create(context.Background(), campaign))

	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_MarkSent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	sentAt := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs(models.CampaignStatusSent, sentAt, "c-1", models.CampaignStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSent(context.Background(), "c-1", sentAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_MarkSent_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCampaignRepository(db)
	sentAt := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status = $4")).
		WithArgs(models.CampaignStatusSent, sentAt, "c-1", models.CampaignStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkSent(context.Background(), "c-1", sentAt)
	assert.ErrorIs(t, err, ErrStatusConflict)
}

var customerColumns = []string{"id", "name", "email", "mobile", "total_orders", "created_at"}

func TestCustomerRepository_QueryCustomers_All(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name, email, mobile, total_orders, created_at\s+FROM customers\s+WHERE 1=1\s+ORDER BY id ASC`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(customerColumns).
			AddRow(1, "Asha", "asha@shop.test", nil, 2, now).
			AddRow(2, nil, nil, "+15550000002", 9, now))

	customers, err := repo.QueryCustomers(context.Background(), CustomerFilter{})
	require.NoError(t, err)
	require.Len(t, customers, 2)

	assert.Equal(t, "Asha", customers[0].DisplayName())
	assert.Nil(t, customers[0].Mobile)
	assert.Equal(t, models.DefaultRecipientName, customers[1].DisplayName())
	assert.Equal(t, 9, customers[1].TotalOrders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_QueryCustomers_MinOrders(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND total_orders >= $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(customerColumns))

	customers, err := repo.QueryCustomers(context.Background(), CustomerFilter{MinTotalOrders: 5})
	require.NoError(t, err)
	assert.Empty(t, customers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db)
	name := "Ravi"
	email := "ravi@shop.test"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WithArgs(&name, &email, nil, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, time.Now()))

	customer := &models.Customer{Name: &name, Email: &email, TotalOrders: 3}
	require.NoError(t, repo.Create(context.Background(), customer))
	assert.Equal(t, 42, customer.ID)
}
