package models

import (
	"strings"
	"time"
)

// SplitMethod selects how a bill's total is divided among participants.
type SplitMethod string

const (
	// SplitEqual divides the total evenly among all participants.
	SplitEqual SplitMethod = "equal"

	// SplitPercentage divides the total by per-participant percentages.
	SplitPercentage SplitMethod = "percentage"

	// SplitCustom assigns a fixed amount per participant.
	SplitCustom SplitMethod = "custom"

	// SplitItemBased derives each share from itemized purchases.
	SplitItemBased SplitMethod = "itemBased"
)

// Participant is one person owing money on a bill.
//
// Email is the primary matching key and is stored lowercased; it must be
// unique within a bill. AmountOwed is recomputed wholesale whenever the
// splitting inputs change. The only per-field mutation after creation is
// the paid flag and its timestamp.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format),
	// generated once at creation.
	ID string `json:"participantId,omitempty"`

	// Name is the participant's display name.
	Name string `json:"name"`

	// Email is the participant's email address, lowercased.
	Email string `json:"email"`

	// AmountOwed is this participant's share of the bill, rounded to
	// 2 decimal places. Never negative.
	AmountOwed float64 `json:"amountOwed"`

	// IsPaid reports whether the participant has marked their share paid.
	IsPaid bool `json:"isPaid"`

	// PaidAt is set iff IsPaid is true.
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

// BillItem is one itemized purchase line, used only by the item-based
// split method.
type BillItem struct {
	// Description names the purchase (e.g. "Pizza").
	Description string `json:"description"`

	// Amount is the item price. Must be greater than zero.
	Amount float64 `json:"amount"`

	// PaidBy identifies who paid for the item, by participant name or
	// email (matched case-insensitively).
	PaidBy string `json:"paidBy"`

	// SplitBetween lists the participants sharing this item's cost
	// equally, each by name or email. Must be non-empty.
	SplitBetween []string `json:"splitBetween"`
}

// CustomSplit is a method-specific override keyed by participant email:
// a percentage for the percentage method, a fixed amount for the custom
// method.
type CustomSplit struct {
	ParticipantEmail string  `json:"participantEmail"`
	Percentage       float64 `json:"percentage,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
}

// AccountDetails carries the bill creator's payment coordinates so
// participants know where to send money.
type AccountDetails struct {
	BankName          string `json:"bankName,omitempty"`
	AccountNumber     string `json:"accountNumber,omitempty"`
	AccountHolderName string `json:"accountHolderName,omitempty"`
	PaymentHandle     string `json:"paymentHandle,omitempty"`
	Currency          string `json:"currency,omitempty"`
}

// Bill is the aggregate root: a shared expense with its computed
// per-participant allocation and settlement state.
//
// IsSettled is derived, never set directly: it is true iff every
// participant's IsPaid flag is true, re-evaluated before each persist of
// the participant list.
type Bill struct {
	// ID is the unique shareable identifier for the bill (UUID format).
	ID string `json:"billId"`

	// Name is the human-readable bill name.
	Name string `json:"billName"`

	// TotalAmount is the declared bill total. Must be greater than zero.
	TotalAmount float64 `json:"totalAmount"`

	// Currency is the ISO currency code, uppercased. Defaults to USD.
	Currency string `json:"currency"`

	// SplitMethod is how the total is divided.
	SplitMethod SplitMethod `json:"splitMethod"`

	// Participants is the computed allocation. At least 2 entries.
	Participants []Participant `json:"participants"`

	// Items backs the item-based split method. Optional otherwise.
	Items []BillItem `json:"items,omitempty"`

	// Notes is free-form text attached to the bill.
	Notes string `json:"notes,omitempty"`

	// CreatedByID references the creating user when authenticated;
	// guest bills carry only the name/email pair.
	CreatedByID    string `json:"createdBy,omitempty"`
	CreatedByName  string `json:"createdByName,omitempty"`
	CreatedByEmail string `json:"createdByEmail,omitempty"`

	// AccountDetails is where participants should send payment.
	AccountDetails *AccountDetails `json:"accountDetails,omitempty"`

	// IsSettled is true iff every participant has paid.
	IsSettled bool `json:"isSettled"`

	// SettledAt is set iff IsSettled is true.
	SettledAt *time.Time `json:"settledAt,omitempty"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// AllPaid reports whether every participant has marked their share paid.
func (b *Bill) AllPaid() bool {
	for i := range b.Participants {
		if !b.Participants[i].IsPaid {
			return false
		}
	}
	return true
}

// FindParticipant returns the participant with the given email,
// case-insensitively, or nil.
func (b *Bill) FindParticipant(email string) *Participant {
	for i := range b.Participants {
		if strings.EqualFold(b.Participants[i].Email, email) {
			return &b.Participants[i]
		}
	}
	return nil
}
