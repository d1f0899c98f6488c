package rules

import (
	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// Input is everything a rule is evaluated against: the volunteer's
// profile facts and the target shift, with time pre-resolved into
// DaysUntilShift so evaluation itself never reads a clock.
type Input struct {
	Facts          model.VolunteerFacts
	Shift          model.Shift
	DaysUntilShift int
}

// Criterion is one entry in the rule engine's fixed predicate vocabulary.
// A rule row configures a criterion by setting its threshold field;
// unconfigured criteria take no part in evaluation.
//
// Criteria are data interpretation, not per-rule branching: the same
// vocabulary instance evaluates every rule.
type Criterion interface {
	Name() string

	// Configured reports whether the rule sets a threshold for this
	// criterion.
	Configured(rule *model.AutoAcceptRule) bool

	// Met reports whether the input satisfies the rule's threshold.
	// Only meaningful when Configured returns true.
	Met(rule *model.AutoAcceptRule, in Input) bool
}

// vocabulary is the complete criterion set, in a fixed order so that
// evaluation detail output is stable.
var vocabulary = []Criterion{
	minGradeCriterion{},
	minCompletedShiftsCriterion{},
	minAttendanceRateCriterion{},
	minAccountAgeCriterion{},
	maxDaysInAdvanceCriterion{},
	shiftTypeExperienceCriterion{},
}

// minGradeCriterion requires the volunteer's grade to be at or above the
// rule's minimum on the GREEN < YELLOW < PINK scale.
type minGradeCriterion struct{}

func (minGradeCriterion) Name() string { return "MinVolunteerGrade" }

func (minGradeCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.MinVolunteerGrade != nil
}

func (minGradeCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.Facts.Grade.AtLeast(*rule.MinVolunteerGrade)
}

type minCompletedShiftsCriterion struct{}

func (minCompletedShiftsCriterion) Name() string { return "MinCompletedShifts" }

func (minCompletedShiftsCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.MinCompletedShifts != nil
}

func (minCompletedShiftsCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.Facts.CompletedShifts >= *rule.MinCompletedShifts
}

type minAttendanceRateCriterion struct{}

func (minAttendanceRateCriterion) Name() string { return "MinAttendanceRate" }

func (minAttendanceRateCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.MinAttendanceRate != nil
}

func (minAttendanceRateCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.Facts.AttendanceRate >= *rule.MinAttendanceRate
}

type minAccountAgeCriterion struct{}

func (minAccountAgeCriterion) Name() string { return "MinAccountAgeDays" }

func (minAccountAgeCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.MinAccountAgeDays != nil
}

func (minAccountAgeCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.Facts.AccountAgeDays >= *rule.MinAccountAgeDays
}

// maxDaysInAdvanceCriterion limits how far ahead of the shift the signup
// may be: the booking must be within the rule's advance window.
type maxDaysInAdvanceCriterion struct{}

func (maxDaysInAdvanceCriterion) Name() string { return "MaxDaysInAdvance" }

func (maxDaysInAdvanceCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.MaxDaysInAdvance != nil
}

func (maxDaysInAdvanceCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.DaysUntilShift <= *rule.MaxDaysInAdvance
}

type shiftTypeExperienceCriterion struct{}

func (shiftTypeExperienceCriterion) Name() string { return "ShiftTypeExperience" }

func (shiftTypeExperienceCriterion) Configured(rule *model.AutoAcceptRule) bool {
	return rule.RequireShiftTypeExperience
}

func (shiftTypeExperienceCriterion) Met(rule *model.AutoAcceptRule, in Input) bool {
	return in.Facts.HasShiftTypeExperience
}
