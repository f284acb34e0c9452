// Package service implements the application operations around the
// split-calculation engine: bill lifecycle, payment marking, and the
// best-effort participant notifications that follow each persisted
// change.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fairshare/internal/calculator"
	"fairshare/internal/mailer"
	"fairshare/internal/metrics"
	"fairshare/internal/models"
	"fairshare/internal/storage"
)

var (
	// ErrSettledBill rejects updates to a bill whose participants have
	// all paid. Checked before any recomputation.
	ErrSettledBill = errors.New("cannot update a settled bill")

	// ErrParticipantNotFound is returned by MarkPayment for an email
	// that matches no participant.
	ErrParticipantNotFound = errors.New("participant not found in this bill")

	// ErrNotCreator rejects deletion by anyone but the bill's creator.
	ErrNotCreator = errors.New("only the creator can delete this bill")
)

// ValidationError marks a failure the caller should surface as a bad
// request rather than a server fault.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// defaultCurrency is applied when a create request omits the currency.
const defaultCurrency = "USD"

// BillService implements bill creation, retrieval, update, payment
// marking, and deletion on top of a storage.Store, with notification
// delivery through a mailer.Sender.
type BillService struct {
	store   storage.Store
	sender  mailer.Sender
	baseURL string
}

// NewBillService creates a BillService. baseURL is used to build bill
// links in notification emails.
func NewBillService(store storage.Store, sender mailer.Sender, baseURL string) *BillService {
	return &BillService{store: store, sender: sender, baseURL: baseURL}
}

// CreateBillRequest carries the raw inputs of a bill creation.
type CreateBillRequest struct {
	Name           string
	TotalAmount    float64
	Currency       string
	SplitMethod    models.SplitMethod
	Participants   []models.Participant
	Items          []models.BillItem
	CustomSplits   []models.CustomSplit
	Notes          string
	AccountDetails *models.AccountDetails

	// Creator identity: from the verified token when authenticated,
	// from the request body for guest bills.
	CreatedByID    string
	CreatedByName  string
	CreatedByEmail string
}

// CreateBill validates the request, computes the allocation, derives the
// settlement state, persists the bill, and notifies every participant.
// Notification failures are logged per recipient and never abort the
// operation.
func (s *BillService) CreateBill(ctx context.Context, req CreateBillRequest) (*models.Bill, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationErrorf("bill name is required")
	}
	if req.TotalAmount <= 0 {
		return nil, validationErrorf("total amount must be greater than 0")
	}

	participants, err := normalizeParticipants(req.Participants)
	if err != nil {
		return nil, err
	}

	if err := validateItems(participants, req.Items); err != nil {
		return nil, err
	}
	if len(req.Items) > 0 {
		itemTotal := calculator.SumItemTotals(req.Items)
		if !calculator.WithinTolerance(itemTotal, req.TotalAmount) {
			return nil, validationErrorf("item totals (%v) do not match the bill total (%v)", itemTotal, req.TotalAmount)
		}
	}

	allocated, err := calculator.ComputeAllocation(req.TotalAmount, participants, req.SplitMethod, req.CustomSplits, req.Items)
	metrics.CountAllocation(string(req.SplitMethod), err)
	if err != nil {
		return nil, &ValidationError{msg: err.Error()}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	bill := &models.Bill{
		Name:           strings.TrimSpace(req.Name),
		TotalAmount:    req.TotalAmount,
		Currency:       currency,
		SplitMethod:    req.SplitMethod,
		Participants:   allocated,
		Items:          req.Items,
		Notes:          req.Notes,
		CreatedByID:    req.CreatedByID,
		CreatedByName:  req.CreatedByName,
		CreatedByEmail: strings.ToLower(req.CreatedByEmail),
		AccountDetails: req.AccountDetails,
	}

	calculator.EvaluateSettlement(bill, time.Now())

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	creator := bill.CreatedByName
	if creator == "" {
		creator = "Someone"
	}
	for _, p := range bill.Participants {
		s.notify(ctx, "bill_created", mailer.BuildBillCreatedEmail(p.Email, mailer.BillEmailData{
			RecipientName: p.Name,
			BillName:      bill.Name,
			BillID:        bill.ID,
			Amount:        mailer.FormatAmount(p.AmountOwed, bill.Currency),
			ActorName:     creator,
			BaseURL:       s.baseURL,
		}))
	}

	return bill, nil
}

// GetBill retrieves a bill by its shareable ID.
func (s *BillService) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	return s.store.GetBill(ctx, billID)
}

// ListBills returns a page of the user's bills plus the total count.
func (s *BillService) ListBills(ctx context.Context, userID string, opts storage.ListOptions) ([]models.Bill, int, error) {
	return s.store.ListBillsByCreator(ctx, userID, opts)
}

// Stats aggregates the user's bills, with the total amount rounded to
// 2 decimals.
func (s *BillService) Stats(ctx context.Context, userID string) (*storage.BillStats, error) {
	stats, err := s.store.BillStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.TotalAmount = calculator.Round2(stats.TotalAmount)
	return stats, nil
}

// UpdateBill applies a patch to a stored bill. Settled bills reject the
// update before anything else. When the patch touches any splitting
// input, the allocation is recomputed from the merge of the patch over
// the stored bill, which resets every participant to unpaid.
func (s *BillService) UpdateBill(ctx context.Context, billID string, patch BillPatch, updaterName string) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.IsSettled {
		return nil, ErrSettledBill
	}

	if patch.touchesSplitInputs() {
		merged := mergeSplitInputs(bill, patch)

		if merged.TotalAmount <= 0 {
			return nil, validationErrorf("total amount must be greater than 0")
		}
		participants, err := normalizeParticipants(merged.Participants)
		if err != nil {
			return nil, err
		}
		if err := validateItems(participants, merged.Items); err != nil {
			return nil, err
		}

		allocated, err := calculator.ComputeAllocation(merged.TotalAmount, participants, merged.SplitMethod, merged.CustomSplits, merged.Items)
		metrics.CountAllocation(string(merged.SplitMethod), err)
		if err != nil {
			return nil, &ValidationError{msg: err.Error()}
		}

		bill.TotalAmount = merged.TotalAmount
		bill.SplitMethod = merged.SplitMethod
		bill.Participants = allocated
		bill.Items = merged.Items
	} else if patch.Items != nil {
		if err := validateItems(bill.Participants, patch.Items); err != nil {
			return nil, err
		}
		bill.Items = patch.Items
	}

	applyMetadata(bill, patch)

	calculator.EvaluateSettlement(bill, time.Now())

	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	if updaterName == "" {
		updaterName = bill.CreatedByName
	}
	if updaterName == "" {
		updaterName = "Someone"
	}
	for _, p := range bill.Participants {
		s.notify(ctx, "bill_updated", mailer.BuildBillUpdatedEmail(p.Email, mailer.BillEmailData{
			RecipientName: p.Name,
			BillName:      bill.Name,
			BillID:        bill.ID,
			Amount:        mailer.FormatAmount(p.AmountOwed, bill.Currency),
			ActorName:     updaterName,
			BaseURL:       s.baseURL,
		}))
	}

	return bill, nil
}

// MarkPayment flips one participant's paid flag, re-derives the bill's
// settlement state, persists, and notifies the other participants. When
// the bill transitions to settled, every participant is notified.
func (s *BillService) MarkPayment(ctx context.Context, billID, participantEmail string, isPaid bool) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	participant := bill.FindParticipant(participantEmail)
	if participant == nil {
		return nil, ErrParticipantNotFound
	}

	participant.IsPaid = isPaid
	if isPaid {
		now := time.Now().UTC()
		participant.PaidAt = &now
	} else {
		participant.PaidAt = nil
	}

	settledNow := calculator.EvaluateSettlement(bill, time.Now()) && bill.IsSettled

	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	for _, p := range bill.Participants {
		if strings.EqualFold(p.Email, participant.Email) {
			continue
		}
		s.notify(ctx, "payment_marked", mailer.BuildPaymentMarkedEmail(p.Email, mailer.BillEmailData{
			RecipientName: p.Name,
			BillName:      bill.Name,
			BillID:        bill.ID,
			Amount:        mailer.FormatAmount(participant.AmountOwed, bill.Currency),
			ActorName:     participant.Name,
			BaseURL:       s.baseURL,
		}))
	}

	if settledNow && isPaid {
		for _, p := range bill.Participants {
			s.notify(ctx, "bill_settled", mailer.BuildBillSettledEmail(p.Email, mailer.BillEmailData{
				RecipientName: p.Name,
				BillName:      bill.Name,
				BillID:        bill.ID,
				Amount:        mailer.FormatAmount(bill.TotalAmount, bill.Currency),
				BaseURL:       s.baseURL,
			}))
		}
	}

	return bill, nil
}

// DeleteBill removes a bill. When the bill has a registered creator, only
// that user may delete it.
func (s *BillService) DeleteBill(ctx context.Context, billID, userID string) error {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.CreatedByID != "" && bill.CreatedByID != userID {
		return ErrNotCreator
	}
	return s.store.DeleteBill(ctx, billID)
}

// notify sends one email, logging and counting the outcome. A failed
// delivery never propagates: each attempt is independent and best-effort.
func (s *BillService) notify(ctx context.Context, kind string, email mailer.Email) {
	err := s.sender.Send(ctx, email)
	metrics.CountNotification(kind, err)
	if err != nil {
		slog.Error("failed to send notification",
			"kind", kind,
			"to", email.To,
			"error", err,
		)
	}
}

// normalizeParticipants lowercases emails, trims names, and enforces the
// bill-level participant invariants.
func normalizeParticipants(participants []models.Participant) ([]models.Participant, error) {
	if len(participants) < 2 {
		return nil, validationErrorf("at least 2 participants are required to split a bill")
	}

	out := make([]models.Participant, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for i, p := range participants {
		name := strings.TrimSpace(p.Name)
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if name == "" || email == "" {
			return nil, validationErrorf("participant name and email are required")
		}
		if _, ok := seen[email]; ok {
			return nil, validationErrorf("duplicate participant email: %s", email)
		}
		seen[email] = struct{}{}

		out[i] = p
		out[i].Name = name
		out[i].Email = email
	}
	return out, nil
}

// validateItems runs the cross-validator and the per-item field checks
// when items are present.
func validateItems(participants []models.Participant, items []models.BillItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return validationErrorf("item description is required")
		}
		if item.Amount <= 0 {
			return validationErrorf("item amount must be greater than 0: %s", item.Description)
		}
		if len(item.SplitBetween) == 0 {
			return validationErrorf("at least one person must be selected for splitting: %s", item.Description)
		}
	}
	if v := calculator.ValidateItemParticipants(participants, items); !v.Valid {
		return &ValidationError{msg: v.Error}
	}
	return nil
}
