package model

import (
	"fmt"
	"time"
)

// Grade is the volunteer grading scale. Grades are ordinal:
// GREEN < YELLOW < PINK.
type Grade string

const (
	GradeGreen  Grade = "GREEN"
	GradeYellow Grade = "YELLOW"
	GradePink   Grade = "PINK"
)

var gradeRank = map[Grade]int{
	GradeGreen:  0,
	GradeYellow: 1,
	GradePink:   2,
}

func (g Grade) IsValid() bool {
	_, ok := gradeRank[g]
	return ok
}

// AtLeast reports whether g is equal to or above min on the grading scale.
func (g Grade) AtLeast(min Grade) bool {
	return gradeRank[g] >= gradeRank[min]
}

// SignupStatus is the lifecycle state of a signup
type SignupStatus string

const (
	SignupPending        SignupStatus = "PENDING"
	SignupRegularPending SignupStatus = "REGULAR_PENDING"
	SignupConfirmed      SignupStatus = "CONFIRMED"
	SignupWaitlisted     SignupStatus = "WAITLISTED"
	SignupCanceled       SignupStatus = "CANCELED"
	SignupNoShow         SignupStatus = "NO_SHOW"
)

func (s SignupStatus) IsValid() bool {
	switch s {
	case SignupPending, SignupRegularPending, SignupConfirmed,
		SignupWaitlisted, SignupCanceled, SignupNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
// CANCELED is terminal except that re-canceling is an idempotent no-op.
func (s SignupStatus) IsTerminal() bool {
	return s == SignupCanceled || s == SignupNoShow
}

// IsActive reports whether the signup still occupies the (volunteer, shift)
// pair for duplicate-signup purposes.
func (s SignupStatus) IsActive() bool {
	return !s.IsTerminal()
}

// IsPendingReview reports whether the signup is awaiting an admin decision.
func (s SignupStatus) IsPendingReview() bool {
	return s == SignupPending || s == SignupRegularPending
}

// ShiftType categorises shifts (e.g. kitchen, front desk)
type ShiftType struct {
	ID   string
	Name string
}

// Shift represents a time-boxed work shift with fixed capacity
type Shift struct {
	ID          string
	ShiftTypeID string
	Location    string
	Start       time.Time
	End         time.Time
	Capacity    int
}

// Validate checks the shift invariants: capacity >= 1 and end after start.
func (s *Shift) Validate() error {
	if s.Capacity < 1 {
		return fmt.Errorf("shift capacity must be at least 1, got %d", s.Capacity)
	}
	if !s.End.After(s.Start) {
		return fmt.Errorf("shift end %s must be after start %s", s.End, s.Start)
	}
	return nil
}

// Day returns the calendar day the shift falls on, in the start time's zone.
func (s *Shift) Day() time.Time {
	y, m, d := s.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Start.Location())
}

// HasStarted reports whether the shift has begun at the given time.
func (s *Shift) HasStarted(now time.Time) bool {
	return !now.Before(s.Start)
}

// HasEnded reports whether the shift has finished at the given time.
func (s *Shift) HasEnded(now time.Time) bool {
	return !now.Before(s.End)
}

// Signup represents a volunteer's signup for a shift
type Signup struct {
	ID             string
	VolunteerID    string
	ShiftID        string
	Status         SignupStatus
	GroupBookingID string // empty if not part of a group booking

	// Flexible placement fields. A flexible signup is created against a
	// placeholder shift and later bound to a concrete one; OriginalShiftID
	// keeps the shift the signup was first created against and is never
	// overwritten once set.
	IsFlexiblePlacement bool
	PlacedAt            *time.Time
	OriginalShiftID     string
	PlacementNotes      string

	CancellationReason string
	CanceledAt         *time.Time

	// MatchedRuleID records which auto-accept rule granted instant
	// approval, if any. Grants are immutable facts and survive rule
	// deletion.
	MatchedRuleID string

	CreatedAt time.Time
}

// CriteriaLogic controls how a rule's configured criteria combine
type CriteriaLogic string

const (
	CriteriaAnd CriteriaLogic = "AND"
	CriteriaOr  CriteriaLogic = "OR"
)

func (l CriteriaLogic) IsValid() bool {
	return l == CriteriaAnd || l == CriteriaOr
}

// AutoAcceptRule is an administrator-configured predicate set granting
// instant CONFIRMED status without manual review. Criteria fields are
// pointers: nil means the criterion is not configured on this rule.
type AutoAcceptRule struct {
	ID       string
	Name     string
	Enabled  bool
	Priority int // higher priority rules are evaluated first

	// Scope: Global XOR ShiftTypeID. LocationFilter optionally narrows
	// either scope to a single location.
	Global         bool
	ShiftTypeID    string
	LocationFilter string

	MinVolunteerGrade          *Grade
	MinCompletedShifts         *int
	MinAttendanceRate          *float64 // percentage, 0-100
	MinAccountAgeDays          *int
	MaxDaysInAdvance           *int
	RequireShiftTypeExperience bool

	CriteriaLogic CriteriaLogic
	StopOnMatch   bool

	CreatedAt time.Time
}

// GroupStatus is the whole-group status of a group booking
type GroupStatus string

const (
	GroupPending    GroupStatus = "PENDING"
	GroupConfirmed  GroupStatus = "CONFIRMED"
	GroupWaitlisted GroupStatus = "WAITLISTED"
	GroupPartial    GroupStatus = "PARTIAL"
	GroupCanceled   GroupStatus = "CANCELED"
)

func (s GroupStatus) IsValid() bool {
	switch s {
	case GroupPending, GroupConfirmed, GroupWaitlisted, GroupPartial, GroupCanceled:
		return true
	}
	return false
}

// GroupBooking is a leader-coordinated set of signups for one shift,
// invited and admitted as a unit
type GroupBooking struct {
	ID         string
	LeaderID   string
	ShiftID    string
	MaxMembers int
	Status     GroupStatus
	Notes      string
	CreatedAt  time.Time
}

// InvitationStatus is the lifecycle state of a group invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
	InvitationCanceled InvitationStatus = "CANCELED"
)

// GroupInvitation invites an email address to join a group booking
type GroupInvitation struct {
	ID             string
	GroupBookingID string
	Email          string
	Token          string
	Status         InvitationStatus
	InvitedBy      string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// IsExpired reports whether the invitation's expiry has passed.
func (i *GroupInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Frequency is how often a regular volunteer's signups are generated
type Frequency string

const (
	FrequencyWeekly      Frequency = "WEEKLY"
	FrequencyFortnightly Frequency = "FORTNIGHTLY"
	FrequencyMonthly     Frequency = "MONTHLY"
)

func (f Frequency) IsValid() bool {
	return f == FrequencyWeekly || f == FrequencyFortnightly || f == FrequencyMonthly
}

// RegularVolunteer is a recurring-schedule configuration. The schedule
// generator itself is external; this record only carries the data and
// pause state it consumes.
type RegularVolunteer struct {
	ID            string
	VolunteerID   string
	ShiftTypeID   string
	Location      string
	Frequency     Frequency
	AvailableDays []time.Weekday

	IsActive       bool
	IsPausedByUser bool
	PausedUntil    *time.Time
	PauseReason    string
}

// VolunteerFacts are the read-only profile facts the rule engine consumes
type VolunteerFacts struct {
	VolunteerID            string
	Grade                  Grade
	CompletedShifts        int
	AttendanceRate         float64 // percentage, 0-100
	AccountAgeDays         int
	HasShiftTypeExperience bool
	Email                  string
}

// RuleGrant records one instant approval issued by an auto-accept rule.
// Grants are append-only reporting facts: deleting the rule later leaves
// its grants untouched.
type RuleGrant struct {
	ID          string
	RuleID      string
	SignupID    string
	VolunteerID string
	GrantedAt   time.Time
}

// NotificationType categorises outbound notification payloads
type NotificationType string

const (
	NotificationSignupConfirmed  NotificationType = "SIGNUP_CONFIRMED"
	NotificationSignupWaitlisted NotificationType = "SIGNUP_WAITLISTED"
	NotificationSignupPending    NotificationType = "SIGNUP_PENDING"
	NotificationSignupCanceled   NotificationType = "SIGNUP_CANCELED"
	NotificationShiftAssigned    NotificationType = "SHIFT_ASSIGNED"
	NotificationGroupInvitation  NotificationType = "GROUP_INVITATION"
)

// Notification is the delivery payload handed to the external notifier.
// Construction is synchronous; delivery is out of band and its failures
// never unwind an admission decision.
type Notification struct {
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	ActionURL   string
	RelatedID   string
}
