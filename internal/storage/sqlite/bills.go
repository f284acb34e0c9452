package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fairshare/internal/models"
	"fairshare/internal/storage"
)

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeOrNil(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

// CreateBill persists a new bill with its participants and items.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	bill.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account := bill.AccountDetails
	if account == nil {
		account = &models.AccountDetails{}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, name, total_amount, currency, split_method, notes,
			created_by, created_by_name, created_by_email,
			bank_name, account_number, account_holder_name, payment_handle, account_currency,
			is_settled, settled_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Name, bill.TotalAmount, bill.Currency, string(bill.SplitMethod), bill.Notes,
		nullIfEmpty(bill.CreatedByID), bill.CreatedByName, bill.CreatedByEmail,
		account.BankName, account.AccountNumber, account.AccountHolderName, account.PaymentHandle, account.Currency,
		bill.IsSettled, unixOrNil(bill.SettledAt), bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	if err := insertBillChildren(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateBill replaces the bill row and rewrites its participant and item
// lists wholesale. Allocations are always recomputed as a whole upstream,
// so a delete-and-reinsert keeps the store faithful to that lifecycle.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	bill.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account := bill.AccountDetails
	if account == nil {
		account = &models.AccountDetails{}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bills SET name = ?, total_amount = ?, currency = ?, split_method = ?, notes = ?,
			bank_name = ?, account_number = ?, account_holder_name = ?, payment_handle = ?, account_currency = ?,
			is_settled = ?, settled_at = ?, updated_at = ?
		 WHERE id = ?`,
		bill.Name, bill.TotalAmount, bill.Currency, string(bill.SplitMethod), bill.Notes,
		account.BankName, account.AccountNumber, account.AccountHolderName, account.PaymentHandle, account.Currency,
		bill.IsSettled, unixOrNil(bill.SettledAt), bill.UpdatedAt,
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bill %s: %w", bill.ID, storage.ErrNotFound)
	}

	for _, stmt := range []string{
		"DELETE FROM item_splits WHERE item_id IN (SELECT id FROM items WHERE bill_id = ?)",
		"DELETE FROM items WHERE bill_id = ?",
		"DELETE FROM participants WHERE bill_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, bill.ID); err != nil {
			return fmt.Errorf("failed to clear bill children: %w", err)
		}
	}

	if err := insertBillChildren(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertBillChildren(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	for i := range bill.Participants {
		p := &bill.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (id, bill_id, name, email, amount_owed, is_paid, paid_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, bill.ID, p.Name, p.Email, p.AmountOwed, p.IsPaid, unixOrNil(p.PaidAt), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for i := range bill.Items {
		item := &bill.Items[i]
		itemID := uuid.New().String()

		_, err := tx.ExecContext(ctx,
			"INSERT INTO items (id, bill_id, description, amount, paid_by, position) VALUES (?, ?, ?, ?, ?, ?)",
			itemID, bill.ID, item.Description, item.Amount, item.PaidBy, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for j, identifier := range item.SplitBetween {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO item_splits (item_id, identifier, position) VALUES (?, ?, ?)",
				itemID, identifier, j,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item split: %w", err)
			}
		}
	}
	return nil
}

// GetBill retrieves a bill by ID, including all participants and items.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var (
		createdBy sql.NullString
		account   models.AccountDetails
		settledAt sql.NullInt64
		method    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_amount, currency, split_method, notes,
			created_by, created_by_name, created_by_email,
			bank_name, account_number, account_holder_name, payment_handle, account_currency,
			is_settled, settled_at, created_at, updated_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(
		&bill.ID, &bill.Name, &bill.TotalAmount, &bill.Currency, &method, &bill.Notes,
		&createdBy, &bill.CreatedByName, &bill.CreatedByEmail,
		&account.BankName, &account.AccountNumber, &account.AccountHolderName, &account.PaymentHandle, &account.Currency,
		&bill.IsSettled, &settledAt, &bill.CreatedAt, &bill.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	bill.SplitMethod = models.SplitMethod(method)
	bill.CreatedByID = createdBy.String
	bill.SettledAt = timeOrNil(settledAt)
	if account != (models.AccountDetails{}) {
		bill.AccountDetails = &account
	}

	if err := s.loadParticipants(ctx, bill); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, bill *models.Bill) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, amount_owed, is_paid, paid_at FROM participants WHERE bill_id = ? ORDER BY position",
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		var paidAt sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.AmountOwed, &p.IsPaid, &paidAt); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		p.PaidAt = timeOrNil(paidAt)
		bill.Participants = append(bill.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, bill *models.Bill) error {
	itemRows, err := s.db.QueryContext(ctx,
		"SELECT id, description, amount, paid_by FROM items WHERE bill_id = ? ORDER BY position",
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	type itemRecord struct {
		id   string
		item models.BillItem
	}
	var records []itemRecord
	for itemRows.Next() {
		var rec itemRecord
		if err := itemRows.Scan(&rec.id, &rec.item.Description, &rec.item.Amount, &rec.item.PaidBy); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		records = append(records, rec)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate items: %w", err)
	}

	for i := range records {
		splitRows, err := s.db.QueryContext(ctx,
			"SELECT identifier FROM item_splits WHERE item_id = ? ORDER BY position",
			records[i].id,
		)
		if err != nil {
			return fmt.Errorf("failed to get item splits: %w", err)
		}
		for splitRows.Next() {
			var identifier string
			if err := splitRows.Scan(&identifier); err != nil {
				splitRows.Close()
				return fmt.Errorf("failed to scan item split: %w", err)
			}
			records[i].item.SplitBetween = append(records[i].item.SplitBetween, identifier)
		}
		err = splitRows.Err()
		splitRows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate item splits: %w", err)
		}
		bill.Items = append(bill.Items, records[i].item)
	}
	return nil
}

// DeleteBill removes a bill; dependent rows cascade.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return nil
}

// ListBillsByCreator returns a page of the user's bills, newest first,
// with participants and items loaded, plus the total match count.
func (s *SQLiteStore) ListBillsByCreator(ctx context.Context, userID string, opts storage.ListOptions) ([]models.Bill, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	where := "created_by = ?"
	args := []any{userID}
	if opts.Settled != nil {
		where += " AND is_settled = ?"
		args = append(args, *opts.Settled)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bills WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM bills WHERE "+where+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bills: %w", err)
	}

	bills := make([]models.Bill, 0, len(ids))
	for _, id := range ids {
		bill, err := s.GetBill(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, *bill)
	}
	return bills, total, nil
}

// BillStats aggregates the user's bills.
func (s *SQLiteStore) BillStats(ctx context.Context, userID string) (*storage.BillStats, error) {
	stats := &storage.BillStats{}
	var totalAmount sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_settled THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_amount), 0)
		 FROM bills WHERE created_by = ?`,
		userID,
	).Scan(&stats.TotalBills, &stats.SettledBills, &totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bills: %w", err)
	}
	stats.PendingBills = stats.TotalBills - stats.SettledBills
	stats.TotalAmount = totalAmount.Float64
	return stats, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
