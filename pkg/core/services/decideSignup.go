package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// DecideSignupStore defines the database operations needed for signup
// lifecycle transitions
type DecideSignupStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

// DecideSignupResult contains the transitioned signup and its shift
type DecideSignupResult struct {
	Signup       model.Signup
	Shift        model.Shift
	Notification *model.Notification
}

// ApproveSignup moves a pending signup to CONFIRMED. It fails with a
// capacity error when the shift is full and a daily-conflict error when
// the volunteer is already confirmed elsewhere that day; the admin must
// then choose to waitlist or reject explicitly.
func ApproveSignup(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID, baseURL string, now time.Time) (*DecideSignupResult, error) {
	result := &DecideSignupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}
		if !signup.Status.IsPendingReview() {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "approve",
			}
		}

		shift, err := tx.GetShiftForUpdate(ctx, signup.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}

		signups, err := tx.ListShiftSignups(ctx, shift.ID)
		if err != nil {
			return fmt.Errorf("failed to list shift signups: %w", err)
		}
		if !ledger.HasRoom(shift, signups, 1) {
			return &model.CapacityError{
				Resource:  "shift",
				ID:        shift.ID,
				Capacity:  shift.Capacity,
				Requested: 1,
			}
		}

		confirmed, err := tx.ListConfirmedWithShifts(ctx, signup.VolunteerID)
		if err != nil {
			return fmt.Errorf("failed to check daily conflicts: %w", err)
		}
		if conflict := ledger.DailyConflict(confirmed, signup.VolunteerID, shift.Day(), signup.ID); conflict != nil {
			return &model.DailyConflictError{
				VolunteerID:     signup.VolunteerID,
				ConflictShiftID: conflict.Shift.ID,
				Day:             dayString(shift.Day()),
			}
		}

		signup.Status = model.SignupConfirmed
		if err := tx.UpdateSignup(ctx, signup); err != nil {
			return fmt.Errorf("failed to update signup: %w", err)
		}

		result.Signup = *signup
		result.Shift = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Notification = signupStatusNotification(&result.Signup, &result.Shift, baseURL)

	logger.Info("Signup approved", zap.String("signup_id", result.Signup.ID))
	return result, nil
}

// WaitlistSignup moves a pending signup to WAITLISTED.
func WaitlistSignup(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID, baseURL string) (*DecideSignupResult, error) {
	result := &DecideSignupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}
		if !signup.Status.IsPendingReview() {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "waitlist",
			}
		}

		shift, err := tx.GetShift(ctx, signup.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}

		signup.Status = model.SignupWaitlisted
		if err := tx.UpdateSignup(ctx, signup); err != nil {
			return fmt.Errorf("failed to update signup: %w", err)
		}

		result.Signup = *signup
		result.Shift = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Notification = signupStatusNotification(&result.Signup, &result.Shift, baseURL)

	logger.Info("Signup waitlisted", zap.String("signup_id", result.Signup.ID))
	return result, nil
}

// RejectSignup cancels a signup on behalf of an administrator, recording
// the rejection reason.
func RejectSignup(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID, reason string, now time.Time) (*DecideSignupResult, error) {
	return cancelInternal(ctx, store, logger, signupID, reason, now, false)
}

// CancelSignup cancels a signup on behalf of the volunteer. Canceling a
// signup that is already CANCELED is an idempotent no-op.
func CancelSignup(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID, reason string, now time.Time) (*DecideSignupResult, error) {
	return cancelInternal(ctx, store, logger, signupID, reason, now, true)
}

func cancelInternal(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID, reason string, now time.Time, idempotent bool) (*DecideSignupResult, error) {
	result := &DecideSignupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}

		if signup.Status == model.SignupCanceled && idempotent {
			result.Signup = *signup
			return nil
		}
		if signup.Status.IsTerminal() {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "cancel",
			}
		}

		signup.Status = model.SignupCanceled
		signup.CancellationReason = reason
		signup.CanceledAt = &now
		if err := tx.UpdateSignup(ctx, signup); err != nil {
			return fmt.Errorf("failed to update signup: %w", err)
		}

		result.Signup = *signup
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Signup canceled",
		zap.String("signup_id", result.Signup.ID),
		zap.String("reason", reason))
	return result, nil
}

// MarkNoShow transitions a CONFIRMED signup to NO_SHOW. Only permitted
// once the shift has ended.
func MarkNoShow(ctx context.Context, store DecideSignupStore, logger *zap.Logger, signupID string, now time.Time) (*DecideSignupResult, error) {
	result := &DecideSignupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}
		if signup.Status != model.SignupConfirmed {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "mark as no-show",
			}
		}

		shift, err := tx.GetShift(ctx, signup.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}
		if !shift.HasEnded(now) {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "mark as no-show before the shift has ended",
			}
		}

		signup.Status = model.SignupNoShow
		if err := tx.UpdateSignup(ctx, signup); err != nil {
			return fmt.Errorf("failed to update signup: %w", err)
		}

		result.Signup = *signup
		result.Shift = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Signup marked as no-show", zap.String("signup_id", result.Signup.ID))
	return result, nil
}
