package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for failures that carry no extra context.
var (
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the actor lacks the required role or
	// ownership for the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExpired indicates a token or invitation is past its expiry.
	ErrExpired = errors.New("expired")
)

// CapacityError indicates a shift or group is at its limit.
type CapacityError struct {
	Resource  string // "shift" or "group"
	ID        string
	Capacity  int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %s is at capacity (%d), cannot admit %d more",
		e.Resource, e.ID, e.Capacity, e.Requested)
}

// DailyConflictError indicates the volunteer already holds a CONFIRMED
// signup on the same calendar day. It names the conflicting shift.
type DailyConflictError struct {
	VolunteerID     string
	ConflictShiftID string
	Day             string // calendar day, YYYY-MM-DD
}

func (e *DailyConflictError) Error() string {
	return fmt.Sprintf("volunteer %s already has a confirmed signup on %s (shift %s)",
		e.VolunteerID, e.Day, e.ConflictShiftID)
}

// InvalidStateError indicates a transition is not legal from the current
// status, e.g. approving an already-canceled signup.
type InvalidStateError struct {
	Entity    string
	ID        string
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s cannot %s from status %s",
		e.Entity, e.ID, e.Attempted, e.Current)
}
