// Package ledger provides the capacity arithmetic for shift admission.
//
// All functions are pure: they operate on the signups handed in by the
// caller, which must have been read inside the same transaction as any
// subsequent write. The ledger's contract is count-then-act under a
// single transaction, not eventual consistency.
package ledger

import (
	"time"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// ConfirmedCount returns the number of signups with status CONFIRMED.
func ConfirmedCount(signups []model.Signup) int {
	count := 0
	for _, s := range signups {
		if s.Status == model.SignupConfirmed {
			count++
		}
	}
	return count
}

// Remaining returns how many more volunteers the shift can admit,
// never negative.
func Remaining(shift *model.Shift, signups []model.Signup) int {
	remaining := shift.Capacity - ConfirmedCount(signups)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasRoom reports whether the shift can admit n more confirmed signups.
func HasRoom(shift *model.Shift, signups []model.Signup, n int) bool {
	return Remaining(shift, signups) >= n
}

// SameDay reports whether a and b fall on the same calendar day.
// b is converted into a's zone before comparing.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// ConfirmedSignupWithShift pairs a confirmed signup with its shift, as
// needed for daily-conflict detection.
type ConfirmedSignupWithShift struct {
	Signup model.Signup
	Shift  model.Shift
}

// DailyConflict returns the volunteer's CONFIRMED signup on the given
// calendar day, if one exists. The signup identified by excludeSignupID
// is ignored, which lets a move re-validate without colliding with the
// signup being moved. Returns nil if there is no conflict.
func DailyConflict(confirmed []ConfirmedSignupWithShift, volunteerID string, day time.Time, excludeSignupID string) *ConfirmedSignupWithShift {
	for i := range confirmed {
		c := &confirmed[i]
		if c.Signup.VolunteerID != volunteerID {
			continue
		}
		if c.Signup.Status != model.SignupConfirmed {
			continue
		}
		if excludeSignupID != "" && c.Signup.ID == excludeSignupID {
			continue
		}
		if SameDay(day, c.Shift.Start) {
			return c
		}
	}
	return nil
}
