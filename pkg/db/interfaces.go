// Package db defines the store and transaction contracts the services
// operate over. Implementations must run the callback passed to InTx as
// one atomic transaction: every admission decision reads capacity state
// and writes its outcome inside the same transaction, so two concurrent
// admissions for the last open slot can never both succeed.
package db

import (
	"context"
	"time"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/ledger"
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// Tx is the per-transaction operation set. Lookup methods that can miss
// return (nil, nil) when no record exists unless documented otherwise;
// Get methods return model.ErrNotFound.
type Tx interface {
	// GetShiftForUpdate fetches a shift and locks its row for the rest
	// of the transaction, serializing concurrent admissions to it.
	GetShiftForUpdate(ctx context.Context, id string) (*model.Shift, error)
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	InsertShift(ctx context.Context, shift *model.Shift) error

	GetShiftType(ctx context.Context, id string) (*model.ShiftType, error)

	// ListShiftSignups returns all non-canceled signups on a shift.
	ListShiftSignups(ctx context.Context, shiftID string) ([]model.Signup, error)

	// FindActiveSignup returns the volunteer's non-terminal signup on
	// the shift, or nil when there is none.
	FindActiveSignup(ctx context.Context, volunteerID, shiftID string) (*model.Signup, error)

	GetSignup(ctx context.Context, id string) (*model.Signup, error)
	InsertSignup(ctx context.Context, signup *model.Signup) error
	UpdateSignup(ctx context.Context, signup *model.Signup) error

	// ListConfirmedWithShifts returns all of the volunteer's CONFIRMED
	// signups joined with their shifts, for daily-conflict checks.
	ListConfirmedWithShifts(ctx context.Context, volunteerID string) ([]ledger.ConfirmedSignupWithShift, error)

	// ListRegularPendingSignups returns the volunteer's signups in
	// REGULAR_PENDING on shifts of the given type, i.e. those generated
	// from one recurring schedule and not yet decided. A non-empty
	// location narrows the match further.
	ListRegularPendingSignups(ctx context.Context, volunteerID, shiftTypeID, location string) ([]model.Signup, error)

	GetVolunteerEmail(ctx context.Context, volunteerID string) (string, error)

	// FindVolunteerIDByEmail returns the id of the volunteer account
	// holding the address, or "" when no account exists.
	FindVolunteerIDByEmail(ctx context.Context, email string) (string, error)

	GetGroupForUpdate(ctx context.Context, id string) (*model.GroupBooking, error)
	InsertGroup(ctx context.Context, group *model.GroupBooking) error
	UpdateGroup(ctx context.Context, group *model.GroupBooking) error

	// FindActiveGroupByLeader returns the leader's non-canceled group
	// booking on the shift, or nil when there is none.
	FindActiveGroupByLeader(ctx context.Context, leaderID, shiftID string) (*model.GroupBooking, error)

	ListGroupSignups(ctx context.Context, groupID string) ([]model.Signup, error)
	ListGroupInvitations(ctx context.Context, groupID string) ([]model.GroupInvitation, error)
	InsertInvitation(ctx context.Context, inv *model.GroupInvitation) error
	UpdateInvitation(ctx context.Context, inv *model.GroupInvitation) error
	GetInvitationByToken(ctx context.Context, token string) (*model.GroupInvitation, error)

	ListEnabledRules(ctx context.Context) ([]model.AutoAcceptRule, error)
	InsertRuleGrant(ctx context.Context, grant *model.RuleGrant) error

	GetRegularForUpdate(ctx context.Context, id string) (*model.RegularVolunteer, error)
	UpdateRegular(ctx context.Context, regular *model.RegularVolunteer) error
}

// Store is the transactional store consumed by the services and the CLI.
type Store interface {
	// InTx runs fn inside one atomic transaction. A non-nil error from
	// fn rolls everything back; partial application is never observable.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// VolunteerFacts aggregates the read-only profile facts the rule
	// engine consumes: grade, completed shifts, attendance rate, account
	// age at now, and prior experience with the shift type.
	VolunteerFacts(ctx context.Context, volunteerID, shiftTypeID string, now time.Time) (*model.VolunteerFacts, error)

	// GetShift is a plain read for callers that need shift details
	// before opening their admission transaction.
	GetShift(ctx context.Context, id string) (*model.Shift, error)

	// ListPendingSignups returns signups awaiting admin review.
	ListPendingSignups(ctx context.Context) ([]model.Signup, error)
}
