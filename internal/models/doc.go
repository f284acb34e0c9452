// Package models defines the core domain models for Fairshare.
//
// The central aggregate is Bill: a shared expense with a declared total,
// a split method, and the per-participant allocation computed from it.
// Participants are matched by email (lowercased, unique within a bill);
// item assignments may reference a participant by either name or email.
//
// Settlement state is derived, never stored independently: a bill is
// settled iff every participant's IsPaid flag is true, and the
// IsSettled/SettledAt pair is re-evaluated before every persist of the
// participant list so the two can never disagree on read.
package models
