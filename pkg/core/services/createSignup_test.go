package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

var admissionNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func admissionShift(id string, capacity int) *model.Shift {
	return &model.Shift{
		ID:          id,
		ShiftTypeID: "kitchen",
		Location:    "ilford",
		Start:       time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC),
		Capacity:    capacity,
	}
}

func intp(v int) *int { return &v }

func TestCreateSignup_PendingByDefault(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupPending, result.Signup.Status)
	assert.Equal(t, "shift-1", result.Signup.OriginalShiftID)
	assert.NotEmpty(t, result.Signup.ID)
	require.NotNil(t, result.Notification)
	assert.Equal(t, model.NotificationSignupPending, result.Notification.Type)
}

func TestCreateSignup_RegularScheduleEntersRegularPending(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID:         "v1",
		ShiftID:             "shift-1",
		FromRegularSchedule: true,
		Now:                 admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupRegularPending, result.Signup.Status)
}

func TestCreateSignup_FullShiftWaitlists(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 2)
	store.signups["a"] = &model.Signup{ID: "a", VolunteerID: "v2", ShiftID: "shift-1", Status: model.SignupConfirmed}
	store.signups["b"] = &model.Signup{ID: "b", VolunteerID: "v3", ShiftID: "shift-1", Status: model.SignupConfirmed}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupWaitlisted, result.Signup.Status)
	require.NotNil(t, result.Notification)
	assert.Equal(t, model.NotificationSignupWaitlisted, result.Notification.Type)
}

func TestCreateSignup_DuplicateActiveSignupRejected(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.signups["existing"] = &model.Signup{
		ID: "existing", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupPending,
	}

	_, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})

	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "existing", stateErr.ID)
}

func TestCreateSignup_CanceledSignupDoesNotBlockResignup(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.signups["old"] = &model.Signup{
		ID: "old", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupCanceled,
	}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SignupPending, result.Signup.Status)
}

func TestCreateSignup_NoShowDoesNotBlockResignup(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.signups["old"] = &model.Signup{
		ID: "old", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupNoShow,
	}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SignupPending, result.Signup.Status)
}

func TestCreateSignup_AutoAcceptConfirmsAndRecordsGrant(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.facts["v1"] = &model.VolunteerFacts{
		VolunteerID: "v1", Grade: model.GradeYellow, CompletedShifts: 12, AttendanceRate: 95,
	}
	store.ruleSet = []model.AutoAcceptRule{
		{
			ID: "r1", Name: "experienced", Enabled: true, Global: true, Priority: 10,
			MinCompletedShifts: intp(10), CriteriaLogic: model.CriteriaAnd,
		},
	}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID:       "v1",
		ShiftID:           "shift-1",
		RequestAutoAccept: true,
		Now:               admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupConfirmed, result.Signup.Status)
	assert.Equal(t, "r1", result.Signup.MatchedRuleID)
	assert.True(t, result.RuleDecision.Eligible)

	require.Len(t, store.grants, 1)
	assert.Equal(t, "r1", store.grants[0].RuleID)
	assert.Equal(t, result.Signup.ID, store.grants[0].SignupID)
}

func TestCreateSignup_NoMatchFallsBackToPending(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.facts["v1"] = &model.VolunteerFacts{VolunteerID: "v1", CompletedShifts: 1}
	store.ruleSet = []model.AutoAcceptRule{
		{
			ID: "r1", Enabled: true, Global: true,
			MinCompletedShifts: intp(10), CriteriaLogic: model.CriteriaAnd,
		},
	}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID:       "v1",
		ShiftID:           "shift-1",
		RequestAutoAccept: true,
		Now:               admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupPending, result.Signup.Status)
	assert.Empty(t, result.Signup.MatchedRuleID)
	assert.Empty(t, store.grants)
}

func TestCreateSignup_AutoAcceptBlockedByDailyConflict(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)

	// Another shift the same calendar day where v1 is already confirmed.
	other := admissionShift("shift-2", 5)
	other.Start = time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	other.End = time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	store.shifts["shift-2"] = other
	store.signups["confirmed"] = &model.Signup{
		ID: "confirmed", VolunteerID: "v1", ShiftID: "shift-2", Status: model.SignupConfirmed,
	}

	store.facts["v1"] = &model.VolunteerFacts{VolunteerID: "v1", CompletedShifts: 12}
	store.ruleSet = []model.AutoAcceptRule{
		{
			ID: "r1", Enabled: true, Global: true,
			MinCompletedShifts: intp(10), CriteriaLogic: model.CriteriaAnd,
		},
	}

	_, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID:       "v1",
		ShiftID:           "shift-1",
		RequestAutoAccept: true,
		Now:               admissionNow,
	})

	var conflictErr *model.DailyConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "shift-2", conflictErr.ConflictShiftID)
}

func TestCreateSignup_FlexiblePlacementSkipsAutoAccept(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.facts["v1"] = &model.VolunteerFacts{VolunteerID: "v1", CompletedShifts: 12}
	store.ruleSet = []model.AutoAcceptRule{
		{
			ID: "r1", Enabled: true, Global: true,
			MinCompletedShifts: intp(10), CriteriaLogic: model.CriteriaAnd,
		},
	}

	result, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID:         "v1",
		ShiftID:             "shift-1",
		RequestAutoAccept:   true,
		IsFlexiblePlacement: true,
		Now:                 admissionNow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SignupPending, result.Signup.Status)
	assert.True(t, result.Signup.IsFlexiblePlacement)
	assert.False(t, result.RuleDecision.Eligible)
}

func TestCreateSignup_ShiftNotFound(t *testing.T) {
	store := newMockStore()

	_, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "missing",
		Now:         admissionNow,
	})

	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestCreateSignup_InsertErrorPropagates(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	store.insertSignupErr = errors.New("disk full")

	_, err := CreateSignup(context.Background(), store, zap.NewNop(), CreateSignupParams{
		VolunteerID: "v1",
		ShiftID:     "shift-1",
		Now:         admissionNow,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
