// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"fairshare/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ListOptions controls pagination and filtering for bill listings.
type ListOptions struct {
	// Page is 1-based.
	Page  int
	Limit int

	// Settled filters by settlement state when non-nil.
	Settled *bool
}

// BillStats aggregates a user's bills.
type BillStats struct {
	TotalBills   int `json:"totalBills"`
	SettledBills int `json:"settledBills"`
	PendingBills int `json:"pendingBills"`

	// TotalAmount is the sum of totals across all bills, rounded to
	// 2 decimals.
	TotalAmount float64 `json:"totalAmount"`
}

// Store defines the interface for bill and user storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateBill persists a new bill. Missing IDs and timestamps are
	// populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by its shareable ID.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// UpdateBill replaces an existing bill wholesale, including its
	// participant and item lists.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes a bill and its dependent rows.
	DeleteBill(ctx context.Context, billID string) error

	// ListBillsByCreator returns a page of bills created by the given
	// user, newest first, plus the total match count.
	ListBillsByCreator(ctx context.Context, userID string, opts ListOptions) ([]models.Bill, int, error)

	// BillStats aggregates the given user's bills.
	BillStats(ctx context.Context, userID string) (*BillStats, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email (stored lowercased).
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
