// Package calculator implements the split-calculation engine: pure
// functions that turn a bill total, a participant list, a split method,
// and the method's inputs into a per-participant allocation.
//
// All functions are deterministic, side-effect free, and safe to invoke
// repeatedly on the same inputs. Monetary values are float64; every
// computed share is rounded once, at the end, with Round2. No remainder
// redistribution is applied, so the sum of an equal split's allocations
// may drift from the total by up to half a cent per participant. That
// drift is documented behavior; correcting it would change settlement
// and reconciliation semantics.
package calculator

import (
	"fmt"
	"math"

	"fairshare/internal/models"
)

// amountTolerance is the absolute tolerance used everywhere two monetary
// (or percentage) totals are compared.
const amountTolerance = 0.01

// Round2 rounds to 2 decimal places, half away from zero at the cent
// boundary. All strategies share this single rounding policy.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// WithinTolerance reports whether two totals agree within the shared
// ±0.01 tolerance.
func WithinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= amountTolerance
}

// allocation returns a fresh unpaid allocation for p. A recomputation
// always discards prior paid state.
func allocation(p models.Participant, owed float64) models.Participant {
	return models.Participant{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		AmountOwed: Round2(owed),
		IsPaid:     false,
	}
}

// EqualSplit divides the total evenly: every participant owes
// round2(total/n).
func EqualSplit(totalAmount float64, participants []models.Participant) []models.Participant {
	perPerson := totalAmount / float64(len(participants))

	out := make([]models.Participant, len(participants))
	for i, p := range participants {
		out[i] = allocation(p, perPerson)
	}
	return out
}

// PercentageSplit divides the total by the per-participant percentages in
// customSplits. The declared percentages must sum to 100 within ±0.01;
// a participant without a matching split (by exact stored email) owes 0.
func PercentageSplit(totalAmount float64, participants []models.Participant, customSplits []models.CustomSplit) ([]models.Participant, error) {
	var totalPercentage float64
	for _, split := range customSplits {
		totalPercentage += split.Percentage
	}
	if math.Abs(totalPercentage-100) > amountTolerance {
		return nil, fmt.Errorf("percentages must add up to 100%%, current total: %v%%", totalPercentage)
	}

	out := make([]models.Participant, len(participants))
	for i, p := range participants {
		var percentage float64
		for _, split := range customSplits {
			if split.ParticipantEmail == p.Email {
				percentage = split.Percentage
				break
			}
		}
		out[i] = allocation(p, totalAmount*percentage/100)
	}
	return out, nil
}

// CustomSplit assigns each participant the fixed amount declared in
// customSplits. The declared amounts must sum to the total within ±0.01;
// a participant without a matching split owes 0.
func CustomSplit(totalAmount float64, participants []models.Participant, customSplits []models.CustomSplit) ([]models.Participant, error) {
	var totalCustom float64
	for _, split := range customSplits {
		totalCustom += split.Amount
	}
	if math.Abs(totalCustom-totalAmount) > amountTolerance {
		return nil, fmt.Errorf("custom amounts must add up to total amount: expected %v, got %v", totalAmount, totalCustom)
	}

	out := make([]models.Participant, len(participants))
	for i, p := range participants {
		var amount float64
		for _, split := range customSplits {
			if split.ParticipantEmail == p.Email {
				amount = split.Amount
				break
			}
		}
		out[i] = allocation(p, amount)
	}
	return out, nil
}

// ItemBasedSplit derives each participant's share from itemized
// purchases: every item's amount is divided evenly among its split-group
// and accumulated, unrounded, into a per-participant running total.
// Identifiers in split-groups resolve against either a participant's
// email or name through the two-key index. Participants never referenced
// by any item owe 0.
func ItemBasedSplit(participants []models.Participant, items []models.BillItem) []models.Participant {
	index := newParticipantIndex(participants)

	owed := make(map[string]float64, len(participants))
	for _, item := range items {
		if len(item.SplitBetween) == 0 {
			continue
		}
		perPerson := item.Amount / float64(len(item.SplitBetween))
		for _, identifier := range item.SplitBetween {
			if p := index.resolve(identifier); p != nil {
				owed[p.Email] += perPerson
			}
		}
	}

	out := make([]models.Participant, len(participants))
	for i, p := range participants {
		out[i] = allocation(p, owed[p.Email])
	}
	return out
}

// ComputeAllocation selects the strategy for the declared split method,
// enforces its required-input preconditions, and returns the computed
// per-participant allocation. Every allocation starts unpaid.
func ComputeAllocation(totalAmount float64, participants []models.Participant, method models.SplitMethod, customSplits []models.CustomSplit, items []models.BillItem) ([]models.Participant, error) {
	switch method {
	case models.SplitEqual:
		return EqualSplit(totalAmount, participants), nil

	case models.SplitPercentage:
		if len(customSplits) == 0 {
			return nil, fmt.Errorf("custom splits with percentages are required for percentage split method")
		}
		return PercentageSplit(totalAmount, participants, customSplits)

	case models.SplitCustom:
		if len(customSplits) == 0 {
			return nil, fmt.Errorf("custom splits with amounts are required for custom split method")
		}
		return CustomSplit(totalAmount, participants, customSplits)

	case models.SplitItemBased:
		if len(items) == 0 {
			return nil, fmt.Errorf("items are required for item-based split method")
		}
		return ItemBasedSplit(participants, items), nil

	default:
		return nil, fmt.Errorf("unknown split method: %s", method)
	}
}
