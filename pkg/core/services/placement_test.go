package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

func TestPlaceFlexible_BindsToTargetShift(t *testing.T) {
	store := newMockStore()
	store.shifts["placeholder"] = admissionShift("placeholder", 5)
	store.shifts["target"] = admissionShift("target", 5)
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "placeholder",
		Status: model.SignupPending, IsFlexiblePlacement: true, OriginalShiftID: "placeholder",
	}

	result, err := PlaceFlexible(context.Background(), store, zap.NewNop(), "s1", "target", "prefers mornings", "", admissionNow)
	require.NoError(t, err)

	assert.Equal(t, "target", result.Signup.ShiftID)
	assert.Equal(t, "placeholder", result.Signup.OriginalShiftID)
	assert.Equal(t, model.SignupConfirmed, result.Signup.Status)
	assert.Equal(t, "prefers mornings", result.Signup.PlacementNotes)
	require.NotNil(t, result.Signup.PlacedAt)
	assert.Equal(t, admissionNow, *result.Signup.PlacedAt)
	require.NotNil(t, result.Notification)
	assert.Equal(t, model.NotificationShiftAssigned, result.Notification.Type)
}

func TestPlaceFlexible_NonFlexibleSignupRejected(t *testing.T) {
	store := newMockStore()
	store.shifts["target"] = admissionShift("target", 5)
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "other", Status: model.SignupPending,
	}

	_, err := PlaceFlexible(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)

	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestPlaceFlexible_AlreadyPlacedRejected(t *testing.T) {
	placed := admissionNow.Add(-time.Hour)
	store := newMockStore()
	store.shifts["target"] = admissionShift("target", 5)
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "somewhere",
		Status: model.SignupConfirmed, IsFlexiblePlacement: true, PlacedAt: &placed,
	}

	_, err := PlaceFlexible(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)

	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestPlaceFlexible_FullTargetFails(t *testing.T) {
	store := newMockStore()
	store.shifts["placeholder"] = admissionShift("placeholder", 5)
	target := admissionShift("target", 1)
	store.shifts["target"] = target
	store.signups["taken"] = &model.Signup{
		ID: "taken", VolunteerID: "v2", ShiftID: "target", Status: model.SignupConfirmed,
	}
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "placeholder",
		Status: model.SignupPending, IsFlexiblePlacement: true,
	}

	_, err := PlaceFlexible(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)

	var capErr *model.CapacityError
	require.ErrorAs(t, err, &capErr)
}

func TestMoveVolunteer_RelocatesAndConfirms(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	target := admissionShift("target", 5)
	target.Start = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	target.End = time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)
	store.shifts["target"] = target
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "shift-1",
		Status: model.SignupConfirmed, OriginalShiftID: "shift-1",
	}

	result, err := MoveVolunteer(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)
	require.NoError(t, err)

	assert.Equal(t, "target", result.Signup.ShiftID)
	assert.Equal(t, "shift-1", result.Signup.OriginalShiftID)
	assert.Equal(t, model.SignupConfirmed, result.Signup.Status)
}

func TestMoveVolunteer_SameDayMoveExcludesItself(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)

	// Target on the same calendar day; the only confirmed signup that day
	// is the one being moved, so it must not conflict with itself.
	target := admissionShift("target", 5)
	target.Start = time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	target.End = time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	store.shifts["target"] = target

	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupConfirmed,
	}

	result, err := MoveVolunteer(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)
	require.NoError(t, err)
	assert.Equal(t, "target", result.Signup.ShiftID)
}

func TestMoveVolunteer_DailyConflictWithOtherSignup(t *testing.T) {
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)

	// v1 is separately confirmed on a Tuesday shift; moving s1 onto
	// another shift that Tuesday must fail.
	tuesday := admissionShift("tuesday-am", 5)
	tuesday.Start = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	tuesday.End = time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC)
	store.shifts["tuesday-am"] = tuesday
	store.signups["other"] = &model.Signup{
		ID: "other", VolunteerID: "v1", ShiftID: "tuesday-am", Status: model.SignupConfirmed,
	}

	target := admissionShift("tuesday-pm", 5)
	target.Start = time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	target.End = time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	store.shifts["tuesday-pm"] = target

	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupConfirmed,
	}

	_, err := MoveVolunteer(context.Background(), store, zap.NewNop(), "s1", "tuesday-pm", "", "", admissionNow)

	var conflictErr *model.DailyConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "tuesday-am", conflictErr.ConflictShiftID)
}

func TestMoveVolunteer_TerminalSignupRejected(t *testing.T) {
	store := newMockStore()
	store.shifts["target"] = admissionShift("target", 5)
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "shift-1", Status: model.SignupCanceled,
	}

	_, err := MoveVolunteer(context.Background(), store, zap.NewNop(), "s1", "target", "", "", admissionNow)

	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestMoveVolunteer_FlexibleSignupRestampsPlacement(t *testing.T) {
	earlier := admissionNow.Add(-48 * time.Hour)
	store := newMockStore()
	store.shifts["shift-1"] = admissionShift("shift-1", 5)
	target := admissionShift("target", 5)
	target.Start = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	target.End = time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)
	store.shifts["target"] = target
	store.signups["s1"] = &model.Signup{
		ID: "s1", VolunteerID: "v1", ShiftID: "shift-1",
		Status: model.SignupConfirmed, IsFlexiblePlacement: true,
		PlacedAt: &earlier, OriginalShiftID: "origin",
	}

	result, err := MoveVolunteer(context.Background(), store, zap.NewNop(), "s1", "target", "moved again", "", admissionNow)
	require.NoError(t, err)

	assert.Equal(t, "origin", result.Signup.OriginalShiftID)
	require.NotNil(t, result.Signup.PlacedAt)
	assert.Equal(t, admissionNow, *result.Signup.PlacedAt)
	assert.Equal(t, "moved again", result.Signup.PlacementNotes)
}
