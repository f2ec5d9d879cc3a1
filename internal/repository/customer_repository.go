package repository

import (
	"context"
	"fmt"
	"strings"

	"campaignhub/internal/models"
)

type customerRepository struct {
	db DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a new customer
func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, mobile, total_orders)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		customer.Name,
		customer.Email,
		customer.Mobile,
		customer.TotalOrders,
	).Scan(&customer.ID, &customer.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// QueryCustomers returns every customer matching the segment filter
func (r *customerRepository) QueryCustomers(ctx context.Context, filter CustomerFilter) ([]*models.Customer, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		SELECT id, name, email, mobile, total_orders, created_at
		FROM customers
		WHERE 1=1
	`)

	args := []interface{}{}

	if filter.MinTotalOrders > 0 {
		args = append(args, filter.MinTotalOrders)
		queryBuilder.WriteString(fmt.Sprintf(" AND total_orders >= $%d", len(args)))
	}

	queryBuilder.WriteString(" ORDER BY id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []*models.Customer{}
	for rows.Next() {
		customer := &models.Customer{}
		err := rows.Scan(
			&customer.ID,
			&customer.Name,
			&customer.Email,
			&customer.Mobile,
			&customer.TotalOrders,
			&customer.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, nil
}
