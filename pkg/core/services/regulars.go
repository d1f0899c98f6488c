package services

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// RegularStore defines the database operations needed for the
// regular-schedule gate
type RegularStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

// regularActive is the pure pause/active predicate. The second return
// value reports that an expired pause was found and should be cleared.
func regularActive(regular *model.RegularVolunteer, now time.Time) (active bool, expiredPause bool) {
	if !regular.IsActive {
		return false, false
	}
	if !regular.IsPausedByUser {
		return true, false
	}
	// A pause without an end date holds until resumed.
	if regular.PausedUntil == nil {
		return false, false
	}
	if now.Before(*regular.PausedUntil) {
		return false, false
	}
	return true, true
}

// RegularIsActiveNow reports whether the recurring volunteer's
// auto-signups should currently be generated. A pause whose end date has
// passed counts as not paused and is normalized back (cleared) as a side
// effect.
func RegularIsActiveNow(ctx context.Context, store RegularStore, logger *zap.Logger, regularID string, now time.Time) (bool, error) {
	var active bool

	err := store.InTx(ctx, func(tx db.Tx) error {
		regular, err := tx.GetRegularForUpdate(ctx, regularID)
		if err != nil {
			return fmt.Errorf("failed to fetch regular volunteer: %w", err)
		}

		var expiredPause bool
		active, expiredPause = regularActive(regular, now)
		if !expiredPause {
			return nil
		}

		regular.IsPausedByUser = false
		regular.PausedUntil = nil
		regular.PauseReason = ""
		if err := tx.UpdateRegular(ctx, regular); err != nil {
			return fmt.Errorf("failed to clear expired pause: %w", err)
		}
		logger.Debug("Cleared expired pause", zap.String("regular_id", regularID))
		return nil
	})
	if err != nil {
		return false, err
	}

	return active, nil
}

// PauseRegularResult contains the paused schedule and the generated
// signups that were canceled with it
type PauseRegularResult struct {
	Regular         model.RegularVolunteer
	CanceledSignups []model.Signup
}

// PauseRegular pauses a recurring schedule until the given time (nil
// pauses indefinitely) and cancels any already-generated REGULAR_PENDING
// signups, recording the reason. Only signups on shifts matching the
// paused schedule's type and location are canceled; a volunteer's other
// schedules are untouched. One atomic transaction.
func PauseRegular(ctx context.Context, store RegularStore, logger *zap.Logger, regularID string, until *time.Time, reason string, now time.Time) (*PauseRegularResult, error) {
	result := &PauseRegularResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		regular, err := tx.GetRegularForUpdate(ctx, regularID)
		if err != nil {
			return fmt.Errorf("failed to fetch regular volunteer: %w", err)
		}

		regular.IsPausedByUser = true
		regular.PausedUntil = until
		regular.PauseReason = reason
		if err := tx.UpdateRegular(ctx, regular); err != nil {
			return fmt.Errorf("failed to update regular volunteer: %w", err)
		}

		generated, err := tx.ListRegularPendingSignups(ctx, regular.VolunteerID, regular.ShiftTypeID, regular.Location)
		if err != nil {
			return fmt.Errorf("failed to list generated signups: %w", err)
		}
		for i := range generated {
			signup := &generated[i]
			signup.Status = model.SignupCanceled
			signup.CancellationReason = reason
			signup.CanceledAt = &now
			if err := tx.UpdateSignup(ctx, signup); err != nil {
				return fmt.Errorf("failed to cancel generated signup: %w", err)
			}
			result.CanceledSignups = append(result.CanceledSignups, *signup)
		}

		result.Regular = *regular
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Regular schedule paused",
		zap.String("regular_id", regularID),
		zap.Int("canceled_signups", len(result.CanceledSignups)))
	return result, nil
}

// ResumeRegular clears a schedule's pause. Signups missed while paused
// are not retroactively created.
func ResumeRegular(ctx context.Context, store RegularStore, logger *zap.Logger, regularID string) (*model.RegularVolunteer, error) {
	var resumed model.RegularVolunteer

	err := store.InTx(ctx, func(tx db.Tx) error {
		regular, err := tx.GetRegularForUpdate(ctx, regularID)
		if err != nil {
			return fmt.Errorf("failed to fetch regular volunteer: %w", err)
		}

		regular.IsPausedByUser = false
		regular.PausedUntil = nil
		regular.PauseReason = ""
		if err := tx.UpdateRegular(ctx, regular); err != nil {
			return fmt.Errorf("failed to update regular volunteer: %w", err)
		}

		resumed = *regular
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Regular schedule resumed", zap.String("regular_id", regularID))
	return &resumed, nil
}

// RegularOccurrences expands a recurring schedule into its next concrete
// dates for the external generator to consume. WEEKLY and FORTNIGHTLY
// recur on every available weekday (fortnightly at a two-week interval);
// MONTHLY recurs on the first matching weekday of each month.
func RegularOccurrences(regular *model.RegularVolunteer, from time.Time, count int) ([]time.Time, error) {
	if len(regular.AvailableDays) == 0 {
		return nil, fmt.Errorf("regular volunteer %s has no available days", regular.ID)
	}

	weekdays := make([]rrule.Weekday, 0, len(regular.AvailableDays))
	for _, day := range regular.AvailableDays {
		switch day {
		case time.Monday:
			weekdays = append(weekdays, rrule.MO)
		case time.Tuesday:
			weekdays = append(weekdays, rrule.TU)
		case time.Wednesday:
			weekdays = append(weekdays, rrule.WE)
		case time.Thursday:
			weekdays = append(weekdays, rrule.TH)
		case time.Friday:
			weekdays = append(weekdays, rrule.FR)
		case time.Saturday:
			weekdays = append(weekdays, rrule.SA)
		case time.Sunday:
			weekdays = append(weekdays, rrule.SU)
		}
	}

	opts := rrule.ROption{
		Dtstart:   from,
		Count:     count,
		Byweekday: weekdays,
	}

	switch regular.Frequency {
	case model.FrequencyWeekly:
		opts.Freq = rrule.WEEKLY
	case model.FrequencyFortnightly:
		opts.Freq = rrule.WEEKLY
		opts.Interval = 2
	case model.FrequencyMonthly:
		opts.Freq = rrule.MONTHLY
		opts.Bysetpos = []int{1}
	default:
		return nil, fmt.Errorf("invalid frequency %q", regular.Frequency)
	}

	rule, err := rrule.NewRRule(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	return rule.All(), nil
}
