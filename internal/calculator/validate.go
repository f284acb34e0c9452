package calculator

import (
	"fmt"
	"strings"

	"fairshare/internal/models"
)

// participantIndex resolves a free-text identifier to a participant by
// email or by name, case-insensitively. Email is checked before name.
// On a case-insensitive collision the first participant in declaration
// order wins; the ambiguity is accepted rather than guessed at.
type participantIndex struct {
	byEmail map[string]*models.Participant
	byName  map[string]*models.Participant
}

func newParticipantIndex(participants []models.Participant) *participantIndex {
	idx := &participantIndex{
		byEmail: make(map[string]*models.Participant, len(participants)),
		byName:  make(map[string]*models.Participant, len(participants)),
	}
	for i := range participants {
		p := &participants[i]
		email := strings.ToLower(p.Email)
		if _, ok := idx.byEmail[email]; !ok {
			idx.byEmail[email] = p
		}
		name := strings.ToLower(p.Name)
		if _, ok := idx.byName[name]; !ok {
			idx.byName[name] = p
		}
	}
	return idx
}

func (idx *participantIndex) resolve(identifier string) *models.Participant {
	key := strings.ToLower(identifier)
	if p, ok := idx.byEmail[key]; ok {
		return p
	}
	if p, ok := idx.byName[key]; ok {
		return p
	}
	return nil
}

// ItemValidation is the passive result of cross-checking item references
// against the participant list. It is inspected by the caller, never
// raised as an error.
type ItemValidation struct {
	Valid bool
	Error string
}

// ValidateItemParticipants checks that every identifier referenced by
// items (each split-group member, then the payer) resolves to a
// declared participant by email or name, case-insensitively. The first
// violation stops the scan and names the offending identifier and the
// item's description.
func ValidateItemParticipants(participants []models.Participant, items []models.BillItem) ItemValidation {
	identifiers := make(map[string]struct{}, len(participants)*2)
	for _, p := range participants {
		identifiers[strings.ToLower(p.Email)] = struct{}{}
		identifiers[strings.ToLower(p.Name)] = struct{}{}
	}

	for _, item := range items {
		for _, splitPerson := range item.SplitBetween {
			if _, ok := identifiers[strings.ToLower(splitPerson)]; !ok {
				return ItemValidation{
					Error: fmt.Sprintf("participant %q in item %q is not in the participants list", splitPerson, item.Description),
				}
			}
		}

		if _, ok := identifiers[strings.ToLower(item.PaidBy)]; !ok {
			return ItemValidation{
				Error: fmt.Sprintf("payer %q in item %q is not in the participants list", item.PaidBy, item.Description),
			}
		}
	}

	return ItemValidation{Valid: true}
}

// SumItemTotals sums all item amounts and rounds to 2 decimals. The
// caller compares the result against the declared bill total with the
// shared ±0.01 tolerance, and only when items are supplied.
func SumItemTotals(items []models.BillItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return Round2(total)
}
