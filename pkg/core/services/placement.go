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

// PlacementStore defines the database operations needed for flexible
// placement and volunteer movement
type PlacementStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
}

// PlacementResult contains the re-assigned signup and its new shift
type PlacementResult struct {
	Signup       model.Signup
	Shift        model.Shift
	Notification *model.Notification
}

// PlaceFlexible binds a flexible signup to a concrete shift. The signup
// must be a flexible placement that has not been placed yet; the target
// shift must have room and no other active signup for the volunteer. On
// success the signup is CONFIRMED on the target shift, the original
// shift id is preserved, and the placement is stamped.
func PlaceFlexible(ctx context.Context, store PlacementStore, logger *zap.Logger, signupID, targetShiftID, notes, baseURL string, now time.Time) (*PlacementResult, error) {
	result := &PlacementResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}
		if !signup.IsFlexiblePlacement || signup.PlacedAt != nil {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "place as flexible",
			}
		}

		shift, err := validatePlacementTarget(ctx, tx, signup, targetShiftID, "")
		if err != nil {
			return err
		}

		if signup.OriginalShiftID == "" {
			signup.OriginalShiftID = signup.ShiftID
		}
		signup.ShiftID = shift.ID
		signup.PlacedAt = &now
		signup.PlacementNotes = notes
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

	result.Notification = assignmentNotification(&result.Signup, &result.Shift, baseURL)

	logger.Info("Flexible signup placed",
		zap.String("signup_id", result.Signup.ID),
		zap.String("shift_id", result.Shift.ID))
	return result, nil
}

// MoveVolunteer relocates an existing signup onto a different shift,
// re-validating capacity, duplicates and daily conflicts (excluding the
// signup being moved). The signup is CONFIRMED on the target shift on
// success. The original shift id is preserved only if not already set;
// a signup that was itself a flexible placement has its placement
// re-stamped.
func MoveVolunteer(ctx context.Context, store PlacementStore, logger *zap.Logger, signupID, targetShiftID, notes, baseURL string, now time.Time) (*PlacementResult, error) {
	result := &PlacementResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		signup, err := tx.GetSignup(ctx, signupID)
		if err != nil {
			return fmt.Errorf("failed to fetch signup: %w", err)
		}
		if signup.Status.IsTerminal() {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        signup.ID,
				Current:   string(signup.Status),
				Attempted: "move",
			}
		}

		shift, err := validatePlacementTarget(ctx, tx, signup, targetShiftID, signup.ID)
		if err != nil {
			return err
		}

		if signup.OriginalShiftID == "" {
			signup.OriginalShiftID = signup.ShiftID
		}
		signup.ShiftID = shift.ID
		if signup.IsFlexiblePlacement {
			signup.PlacedAt = &now
			signup.PlacementNotes = notes
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

	result.Notification = assignmentNotification(&result.Signup, &result.Shift, baseURL)

	logger.Info("Volunteer moved",
		zap.String("signup_id", result.Signup.ID),
		zap.String("shift_id", result.Shift.ID))
	return result, nil
}

// validatePlacementTarget locks the target shift and runs the admission
// checks shared by placement and movement: room on the shift, no other
// active signup for the volunteer there, and no daily conflict with the
// volunteer's confirmed signups (excludeSignupID skips the signup being
// relocated).
func validatePlacementTarget(ctx context.Context, tx db.Tx, signup *model.Signup, targetShiftID, excludeSignupID string) (*model.Shift, error) {
	shift, err := tx.GetShiftForUpdate(ctx, targetShiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target shift: %w", err)
	}

	signups, err := tx.ListShiftSignups(ctx, shift.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift signups: %w", err)
	}
	if !ledger.HasRoom(shift, signups, 1) {
		return nil, &model.CapacityError{
			Resource:  "shift",
			ID:        shift.ID,
			Capacity:  shift.Capacity,
			Requested: 1,
		}
	}

	dup, err := tx.FindActiveSignup(ctx, signup.VolunteerID, shift.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing signup: %w", err)
	}
	if dup != nil && dup.ID != signup.ID {
		return nil, &model.InvalidStateError{
			Entity:    "signup",
			ID:        dup.ID,
			Current:   string(dup.Status),
			Attempted: "hold a second signup on the target shift",
		}
	}

	confirmed, err := tx.ListConfirmedWithShifts(ctx, signup.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check daily conflicts: %w", err)
	}
	if conflict := ledger.DailyConflict(confirmed, signup.VolunteerID, shift.Day(), excludeSignupID); conflict != nil {
		return nil, &model.DailyConflictError{
			VolunteerID:     signup.VolunteerID,
			ConflictShiftID: conflict.Shift.ID,
			Day:             dayString(shift.Day()),
		}
	}

	return shift, nil
}
