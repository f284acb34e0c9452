package service

import "fairshare/internal/models"

// BillPatch carries the optional fields of an update request. Every field
// is tagged present/absent: nil means "keep the stored value". Slices use
// nil for absent, so an explicitly empty slice still counts as present.
type BillPatch struct {
	Name           *string
	TotalAmount    *float64
	SplitMethod    *models.SplitMethod
	Participants   []models.Participant
	Items          []models.BillItem
	CustomSplits   []models.CustomSplit
	Notes          *string
	AccountDetails *models.AccountDetails
}

// touchesSplitInputs reports whether the patch changes any input that
// requires the allocation to be recomputed.
func (p BillPatch) touchesSplitInputs() bool {
	return p.Participants != nil || p.TotalAmount != nil || p.SplitMethod != nil
}

// splitInputs is the full set of inputs the dispatcher needs, assembled
// by merging a patch over a stored bill.
type splitInputs struct {
	TotalAmount  float64
	SplitMethod  models.SplitMethod
	Participants []models.Participant
	Items        []models.BillItem
	CustomSplits []models.CustomSplit
}

// mergeSplitInputs merges the patch over the stored bill, field by field:
// the patch value when present, the stored value otherwise. Custom splits
// are request-scoped and never persisted, so they come from the patch
// alone. Pure function; neither input is mutated.
func mergeSplitInputs(existing *models.Bill, patch BillPatch) splitInputs {
	merged := splitInputs{
		TotalAmount:  existing.TotalAmount,
		SplitMethod:  existing.SplitMethod,
		Participants: existing.Participants,
		Items:        existing.Items,
		CustomSplits: patch.CustomSplits,
	}
	if patch.TotalAmount != nil {
		merged.TotalAmount = *patch.TotalAmount
	}
	if patch.SplitMethod != nil {
		merged.SplitMethod = *patch.SplitMethod
	}
	if patch.Participants != nil {
		merged.Participants = patch.Participants
	}
	if patch.Items != nil {
		merged.Items = patch.Items
	}
	return merged
}

// applyMetadata copies the patch's non-splitting fields onto the bill.
func applyMetadata(bill *models.Bill, patch BillPatch) {
	if patch.Name != nil {
		bill.Name = *patch.Name
	}
	if patch.Notes != nil {
		bill.Notes = *patch.Notes
	}
	if patch.AccountDetails != nil {
		merged := *patch.AccountDetails
		if existing := bill.AccountDetails; existing != nil {
			if merged.BankName == "" {
				merged.BankName = existing.BankName
			}
			if merged.AccountNumber == "" {
				merged.AccountNumber = existing.AccountNumber
			}
			if merged.AccountHolderName == "" {
				merged.AccountHolderName = existing.AccountHolderName
			}
			if merged.PaymentHandle == "" {
				merged.PaymentHandle = existing.PaymentHandle
			}
			if merged.Currency == "" {
				merged.Currency = existing.Currency
			}
		}
		if merged.Currency == "" {
			merged.Currency = bill.Currency
		}
		bill.AccountDetails = &merged
	}
}
