package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campaignhub/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned when a conditional status update matched no row
	ErrStatusConflict = errors.New("campaign is no longer in draft status")
)

// CustomerRepository defines customer directory operations
type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	QueryCustomers(ctx context.Context, filter CustomerFilter) ([]*models.Customer, error)
}

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

// CustomerFilter is the segment predicate evaluated against the directory.
// A zero filter selects every customer.
type CustomerFilter struct {
	MinTotalOrders int
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
