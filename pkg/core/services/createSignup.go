package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/rules"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/db"
)

// CreateSignupStore defines the database operations needed for admission
type CreateSignupStore interface {
	InTx(ctx context.Context, fn func(tx db.Tx) error) error
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	VolunteerFacts(ctx context.Context, volunteerID, shiftTypeID string, now time.Time) (*model.VolunteerFacts, error)
}

// CreateSignupParams describes a signup request entering admission
type CreateSignupParams struct {
	VolunteerID string
	ShiftID     string

	// RequestAutoAccept asks the rule engine for instant approval. When
	// false (or when no rule matches), the signup is left for manual
	// admin review.
	RequestAutoAccept bool

	// FromRegularSchedule marks signups generated by a recurring
	// schedule; they enter REGULAR_PENDING instead of PENDING so a
	// pause can find and cancel them.
	FromRegularSchedule bool

	// IsFlexiblePlacement creates the signup against the requested shift
	// as a placeholder only; it is bound to a concrete shift later via
	// PlaceFlexible and skips instant approval here.
	IsFlexiblePlacement bool

	NotificationBaseURL string
	Now                 time.Time
}

// CreateSignupResult contains the admission outcome
type CreateSignupResult struct {
	Signup       model.Signup
	Shift        model.Shift
	RuleDecision rules.Decision

	// Notification is the payload to hand to the notifier after commit.
	Notification *model.Notification
}

// CreateSignup runs the admission flow for a new signup request:
// duplicate check, capacity check (full shifts waitlist), then the rule
// engine for instant approval, falling back to pending review. The whole
// decision happens inside one transaction against the shift's locked row.
func CreateSignup(ctx context.Context, store CreateSignupStore, logger *zap.Logger, params CreateSignupParams) (*CreateSignupResult, error) {
	logger.Debug("Starting signup admission",
		zap.String("volunteer_id", params.VolunteerID),
		zap.String("shift_id", params.ShiftID),
		zap.Bool("auto_accept_requested", params.RequestAutoAccept))

	// Profile facts come from an external read-only collaborator, so
	// they're fetched ahead of the admission transaction. The shift is
	// read here only for its type; the transaction re-reads it under
	// lock before any capacity arithmetic.
	var facts *model.VolunteerFacts
	if params.RequestAutoAccept && !params.IsFlexiblePlacement {
		shift, err := store.GetShift(ctx, params.ShiftID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch shift: %w", err)
		}
		facts, err = store.VolunteerFacts(ctx, params.VolunteerID, shift.ShiftTypeID, params.Now)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch volunteer facts: %w", err)
		}
	}

	result := &CreateSignupResult{}

	err := store.InTx(ctx, func(tx db.Tx) error {
		shift, err := tx.GetShiftForUpdate(ctx, params.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to fetch shift: %w", err)
		}
		result.Shift = *shift

		dup, err := tx.FindActiveSignup(ctx, params.VolunteerID, params.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to check for existing signup: %w", err)
		}
		if dup != nil {
			return &model.InvalidStateError{
				Entity:    "signup",
				ID:        dup.ID,
				Current:   string(dup.Status),
				Attempted: "create a second signup for the same shift",
			}
		}

		signup := model.Signup{
			ID:                  uuid.NewString(),
			VolunteerID:         params.VolunteerID,
			ShiftID:             params.ShiftID,
			IsFlexiblePlacement: params.IsFlexiblePlacement,
			OriginalShiftID:     params.ShiftID,
			CreatedAt:           params.Now,
		}

		signups, err := tx.ListShiftSignups(ctx, params.ShiftID)
		if err != nil {
			return fmt.Errorf("failed to list shift signups: %w", err)
		}

		switch {
		case !ledger.HasRoom(shift, signups, 1):
			signup.Status = model.SignupWaitlisted

		case facts != nil:
			ruleSet, err := tx.ListEnabledRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list auto-accept rules: %w", err)
			}

			decision := rules.Evaluate(ruleSet, *facts, shift, params.Now)
			result.RuleDecision = decision

			if decision.Eligible {
				confirmed, err := tx.ListConfirmedWithShifts(ctx, params.VolunteerID)
				if err != nil {
					return fmt.Errorf("failed to check daily conflicts: %w", err)
				}
				if conflict := ledger.DailyConflict(confirmed, params.VolunteerID, shift.Day(), ""); conflict != nil {
					return &model.DailyConflictError{
						VolunteerID:     params.VolunteerID,
						ConflictShiftID: conflict.Shift.ID,
						Day:             dayString(shift.Day()),
					}
				}

				signup.Status = model.SignupConfirmed
				signup.MatchedRuleID = decision.MatchedRuleID
			} else {
				signup.Status = pendingStatus(params.FromRegularSchedule)
			}

		default:
			signup.Status = pendingStatus(params.FromRegularSchedule)
		}

		if err := tx.InsertSignup(ctx, &signup); err != nil {
			return fmt.Errorf("failed to insert signup: %w", err)
		}

		if signup.Status == model.SignupConfirmed && signup.MatchedRuleID != "" {
			grant := model.RuleGrant{
				ID:          uuid.NewString(),
				RuleID:      signup.MatchedRuleID,
				SignupID:    signup.ID,
				VolunteerID: signup.VolunteerID,
				GrantedAt:   params.Now,
			}
			if err := tx.InsertRuleGrant(ctx, &grant); err != nil {
				return fmt.Errorf("failed to record rule grant: %w", err)
			}
		}

		result.Signup = signup
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Notification = signupStatusNotification(&result.Signup, &result.Shift, params.NotificationBaseURL)

	logger.Info("Signup admitted",
		zap.String("signup_id", result.Signup.ID),
		zap.String("status", string(result.Signup.Status)),
		zap.String("matched_rule_id", result.Signup.MatchedRuleID))

	return result, nil
}

func pendingStatus(fromRegularSchedule bool) model.SignupStatus {
	if fromRegularSchedule {
		return model.SignupRegularPending
	}
	return model.SignupPending
}
