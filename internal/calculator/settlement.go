package calculator

import (
	"time"

	"fairshare/internal/models"
)

// EvaluateSettlement re-derives a bill's settlement state from its
// participants' paid flags. It must run before every persist of the
// participant list so the stored IsSettled/SettledAt pair is always
// consistent with the stored participants.
//
// Transitions: all paid and not yet settled → settled at now; not all
// paid but marked settled → unsettled, timestamp cleared; otherwise no
// change. Returns true when the state changed.
func EvaluateSettlement(bill *models.Bill, now time.Time) bool {
	allPaid := bill.AllPaid()

	switch {
	case allPaid && !bill.IsSettled:
		bill.IsSettled = true
		settledAt := now
		bill.SettledAt = &settledAt
		return true
	case !allPaid && bill.IsSettled:
		bill.IsSettled = false
		bill.SettledAt = nil
		return true
	default:
		return false
	}
}
