package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fairshare/internal/mailer"
	"fairshare/internal/models"
	"fairshare/internal/storage"
	"fairshare/internal/storage/sqlite"
)

// recordingSender captures every email handed to it, optionally failing
// each send.
type recordingSender struct {
	mu      sync.Mutex
	sent    []mailer.Email
	failAll bool
}

func (r *recordingSender) Send(_ context.Context, email mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, email)
	return nil
}

func (r *recordingSender) emails() []mailer.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mailer.Email, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recordingSender) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func newTestService(t *testing.T) (*BillService, *recordingSender, storage.Store) {
	t.Helper()

	dir, err := os.MkdirTemp("", "fairshare-service-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sender := &recordingSender{}
	return NewBillService(store, sender, "https://fairshare.test"), sender, store
}

func equalSplitRequest() CreateBillRequest {
	return CreateBillRequest{
		Name:        "Dinner",
		TotalAmount: 90,
		SplitMethod: models.SplitEqual,
		Participants: []models.Participant{
			{Name: "Alice", Email: "Alice@Example.com"},
			{Name: "Bob", Email: "bob@example.com"},
			{Name: "Carol", Email: "carol@example.com"},
		},
		CreatedByName:  "Alice",
		CreatedByEmail: "alice@example.com",
	}
}

func TestCreateBill(t *testing.T) {
	ctx := context.Background()

	t.Run("equal split allocates and persists", func(t *testing.T) {
		svc, sender, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if bill.ID == "" {
			t.Error("expected generated bill ID")
		}
		if bill.Currency != "USD" {
			t.Errorf("Currency = %q, want default USD", bill.Currency)
		}
		for _, p := range bill.Participants {
			if p.AmountOwed != 30 {
				t.Errorf("participant %s owes %v, want 30", p.Email, p.AmountOwed)
			}
			if p.IsPaid {
				t.Errorf("participant %s created as paid", p.Email)
			}
		}
		if bill.Participants[0].Email != "alice@example.com" {
			t.Errorf("email not lowercased: %q", bill.Participants[0].Email)
		}

		stored, err := svc.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if stored.TotalAmount != 90 {
			t.Errorf("stored TotalAmount = %v, want 90", stored.TotalAmount)
		}

		sent := sender.emails()
		if len(sent) != 3 {
			t.Fatalf("expected 3 notifications, got %d", len(sent))
		}
		if !strings.Contains(sent[0].Subject, "Dinner") {
			t.Errorf("notification subject missing bill name: %q", sent[0].Subject)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		tests := []struct {
			name    string
			mutate  func(*CreateBillRequest)
			wantErr string
		}{
			{
				name:    "missing name",
				mutate:  func(r *CreateBillRequest) { r.Name = "  " },
				wantErr: "bill name is required",
			},
			{
				name:    "zero total",
				mutate:  func(r *CreateBillRequest) { r.TotalAmount = 0 },
				wantErr: "greater than 0",
			},
			{
				name: "single participant",
				mutate: func(r *CreateBillRequest) {
					r.Participants = r.Participants[:1]
				},
				wantErr: "at least 2 participants",
			},
			{
				name: "duplicate emails differ only by case",
				mutate: func(r *CreateBillRequest) {
					r.Participants[1].Email = "ALICE@example.com"
				},
				wantErr: "duplicate participant email",
			},
			{
				name: "percentage method without splits",
				mutate: func(r *CreateBillRequest) {
					r.SplitMethod = models.SplitPercentage
				},
				wantErr: "custom splits with percentages are required",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := equalSplitRequest()
				tt.mutate(&req)

				_, err := svc.CreateBill(ctx, req)
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("expected ValidationError, got %T: %v", err, err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
			})
		}
	})

	t.Run("item totals must match bill total", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		req := equalSplitRequest()
		req.SplitMethod = models.SplitItemBased
		req.Items = []models.BillItem{
			{Description: "Pasta", Amount: 50, PaidBy: "alice@example.com", SplitBetween: []string{"alice@example.com", "bob@example.com"}},
		}

		_, err := svc.CreateBill(ctx, req)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "do not match the bill total") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("item referencing unknown participant rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		req := equalSplitRequest()
		req.SplitMethod = models.SplitItemBased
		req.Items = []models.BillItem{
			{Description: "Pasta", Amount: 90, PaidBy: "alice@example.com", SplitBetween: []string{"mallory@example.com"}},
		}

		_, err := svc.CreateBill(ctx, req)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "mallory@example.com") {
			t.Errorf("error should name the unknown participant: %v", err)
		}
	})

	t.Run("notification failures do not abort creation", func(t *testing.T) {
		svc, sender, _ := newTestService(t)
		sender.failAll = true

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed despite sender errors: %v", err)
		}
		if _, err := svc.GetBill(ctx, bill.ID); err != nil {
			t.Errorf("bill not persisted: %v", err)
		}
	})
}

func TestUpdateBill(t *testing.T) {
	ctx := context.Background()

	t.Run("metadata patch keeps allocation and paid state", func(t *testing.T) {
		svc, sender, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if _, err := svc.MarkPayment(ctx, bill.ID, "alice@example.com", true); err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}
		sender.reset()

		updated, err := svc.UpdateBill(ctx, bill.ID, BillPatch{Name: strPtr("Team Dinner")}, "Bob")
		if err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}

		if updated.Name != "Team Dinner" {
			t.Errorf("Name = %q, want Team Dinner", updated.Name)
		}
		alice := updated.FindParticipant("alice@example.com")
		if alice == nil || !alice.IsPaid {
			t.Error("metadata patch reset the paid flag")
		}
		if len(sender.emails()) != 3 {
			t.Errorf("expected 3 update notifications, got %d", len(sender.emails()))
		}
	})

	t.Run("split input patch recomputes and resets payments", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if _, err := svc.MarkPayment(ctx, bill.ID, "alice@example.com", true); err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}

		updated, err := svc.UpdateBill(ctx, bill.ID, BillPatch{TotalAmount: floatPtr(120)}, "")
		if err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}

		if updated.TotalAmount != 120 {
			t.Errorf("TotalAmount = %v, want 120", updated.TotalAmount)
		}
		for _, p := range updated.Participants {
			if p.AmountOwed != 40 {
				t.Errorf("participant %s owes %v, want 40", p.Email, p.AmountOwed)
			}
			if p.IsPaid || p.PaidAt != nil {
				t.Errorf("participant %s kept paid state across recompute", p.Email)
			}
		}
	})

	t.Run("method change uses request-scoped custom splits", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		patch := BillPatch{
			SplitMethod: methodPtr(models.SplitPercentage),
			CustomSplits: []models.CustomSplit{
				{ParticipantEmail: "alice@example.com", Percentage: 50},
				{ParticipantEmail: "bob@example.com", Percentage: 30},
				{ParticipantEmail: "carol@example.com", Percentage: 20},
			},
		}

		updated, err := svc.UpdateBill(ctx, bill.ID, patch, "")
		if err != nil {
			t.Fatalf("UpdateBill failed: %v", err)
		}

		want := map[string]float64{
			"alice@example.com": 45,
			"bob@example.com":   27,
			"carol@example.com": 18,
		}
		for _, p := range updated.Participants {
			if p.AmountOwed != want[p.Email] {
				t.Errorf("participant %s owes %v, want %v", p.Email, p.AmountOwed, want[p.Email])
			}
		}
	})

	t.Run("non-positive total rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		for _, total := range []float64{-30, 0} {
			_, err := svc.UpdateBill(ctx, bill.ID, BillPatch{TotalAmount: floatPtr(total)}, "")
			if err == nil {
				t.Fatalf("update with total %v succeeded", total)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError for total %v, got %T: %v", total, err, err)
			}
		}

		stored, err := svc.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if stored.TotalAmount != 90 {
			t.Errorf("stored TotalAmount = %v, want 90 untouched", stored.TotalAmount)
		}
		for _, p := range stored.Participants {
			if p.AmountOwed < 0 {
				t.Errorf("participant %s owes %v after rejected update", p.Email, p.AmountOwed)
			}
		}
	})

	t.Run("items-only patch still validated", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		tests := []struct {
			name    string
			item    models.BillItem
			wantErr string
		}{
			{
				name:    "empty description",
				item:    models.BillItem{Description: "", Amount: 90, PaidBy: "alice@example.com", SplitBetween: []string{"bob@example.com"}},
				wantErr: "item description is required",
			},
			{
				name:    "negative amount",
				item:    models.BillItem{Description: "Pasta", Amount: -5, PaidBy: "alice@example.com", SplitBetween: []string{"bob@example.com"}},
				wantErr: "item amount must be greater than 0",
			},
			{
				name:    "empty split group",
				item:    models.BillItem{Description: "Pasta", Amount: 90, PaidBy: "alice@example.com", SplitBetween: nil},
				wantErr: "at least one person must be selected",
			},
			{
				name:    "unknown payer",
				item:    models.BillItem{Description: "Pasta", Amount: 90, PaidBy: "mallory@example.com", SplitBetween: []string{"bob@example.com"}},
				wantErr: "mallory@example.com",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.UpdateBill(ctx, bill.ID, BillPatch{Items: []models.BillItem{tt.item}}, "")
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
			})
		}

		stored, err := svc.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if len(stored.Items) != 0 {
			t.Errorf("invalid items persisted: %v", stored.Items)
		}
	})

	t.Run("settled bill rejects update", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		for _, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
			if _, err := svc.MarkPayment(ctx, bill.ID, email, true); err != nil {
				t.Fatalf("MarkPayment(%s) failed: %v", email, err)
			}
		}

		_, err = svc.UpdateBill(ctx, bill.ID, BillPatch{Name: strPtr("nope")}, "")
		if !errors.Is(err, ErrSettledBill) {
			t.Errorf("expected ErrSettledBill, got %v", err)
		}
	})

	t.Run("unknown bill", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.UpdateBill(ctx, "missing", BillPatch{Name: strPtr("x")}, "")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMarkPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("marks paid and notifies the others", func(t *testing.T) {
		svc, sender, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		sender.reset()

		updated, err := svc.MarkPayment(ctx, bill.ID, "ALICE@example.com", true)
		if err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}

		alice := updated.FindParticipant("alice@example.com")
		if alice == nil || !alice.IsPaid || alice.PaidAt == nil {
			t.Fatalf("alice not marked paid: %+v", alice)
		}
		if updated.IsSettled {
			t.Error("bill settled with two participants unpaid")
		}

		sent := sender.emails()
		if len(sent) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(sent))
		}
		for _, e := range sent {
			if strings.EqualFold(e.To, "alice@example.com") {
				t.Errorf("payer notified about their own payment: %q", e.To)
			}
		}
	})

	t.Run("final payment settles the bill and notifies everyone", func(t *testing.T) {
		svc, sender, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if _, err := svc.MarkPayment(ctx, bill.ID, "alice@example.com", true); err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}
		if _, err := svc.MarkPayment(ctx, bill.ID, "bob@example.com", true); err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}
		sender.reset()

		updated, err := svc.MarkPayment(ctx, bill.ID, "carol@example.com", true)
		if err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}

		if !updated.IsSettled || updated.SettledAt == nil {
			t.Fatal("bill not settled after final payment")
		}
		// 2 payment notices plus 3 settled notices.
		if len(sender.emails()) != 5 {
			t.Errorf("expected 5 notifications, got %d", len(sender.emails()))
		}
	})

	t.Run("unpaying a settled bill unsettles it", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		for _, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
			if _, err := svc.MarkPayment(ctx, bill.ID, email, true); err != nil {
				t.Fatalf("MarkPayment(%s) failed: %v", email, err)
			}
		}

		updated, err := svc.MarkPayment(ctx, bill.ID, "bob@example.com", false)
		if err != nil {
			t.Fatalf("MarkPayment failed: %v", err)
		}

		if updated.IsSettled || updated.SettledAt != nil {
			t.Error("bill still settled after a payment was undone")
		}
		bob := updated.FindParticipant("bob@example.com")
		if bob.IsPaid || bob.PaidAt != nil {
			t.Errorf("bob still marked paid: %+v", bob)
		}
	})

	t.Run("unknown participant", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		_, err = svc.MarkPayment(ctx, bill.ID, "mallory@example.com", true)
		if !errors.Is(err, ErrParticipantNotFound) {
			t.Errorf("expected ErrParticipantNotFound, got %v", err)
		}
	})
}

func TestDeleteBill(t *testing.T) {
	ctx := context.Background()

	t.Run("creator can delete", func(t *testing.T) {
		svc, _, store := newTestService(t)

		user := &models.User{ID: "user-1", FullName: "Alice", Email: "alice@example.com", PasswordHash: "x"}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		req := equalSplitRequest()
		req.CreatedByID = user.ID
		bill, err := svc.CreateBill(ctx, req)
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if err := svc.DeleteBill(ctx, bill.ID, user.ID); err != nil {
			t.Fatalf("DeleteBill failed: %v", err)
		}
		if _, err := svc.GetBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("non-creator rejected", func(t *testing.T) {
		svc, _, store := newTestService(t)

		user := &models.User{ID: "user-1", FullName: "Alice", Email: "alice@example.com", PasswordHash: "x"}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		req := equalSplitRequest()
		req.CreatedByID = user.ID
		bill, err := svc.CreateBill(ctx, req)
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if err := svc.DeleteBill(ctx, bill.ID, "someone-else"); !errors.Is(err, ErrNotCreator) {
			t.Errorf("expected ErrNotCreator, got %v", err)
		}
	})

	t.Run("guest bill deletable by anyone", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		bill, err := svc.CreateBill(ctx, equalSplitRequest())
		if err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if err := svc.DeleteBill(ctx, bill.ID, ""); err != nil {
			t.Errorf("DeleteBill failed for guest bill: %v", err)
		}
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService(t)

	user := &models.User{ID: "user-1", FullName: "Alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	for i, total := range []float64{10.105, 20.105, 30} {
		req := equalSplitRequest()
		req.Name = "Bill " + string(rune('A'+i))
		req.TotalAmount = total
		req.CreatedByID = user.ID
		if _, err := svc.CreateBill(ctx, req); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
	}

	stats, err := svc.Stats(ctx, user.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalBills != 3 {
		t.Errorf("TotalBills = %d, want 3", stats.TotalBills)
	}
	if stats.PendingBills != 3 {
		t.Errorf("PendingBills = %d, want 3", stats.PendingBills)
	}
	if stats.TotalAmount != 60.21 {
		t.Errorf("TotalAmount = %v, want 60.21", stats.TotalAmount)
	}
}
