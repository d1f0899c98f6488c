package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

var (
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testShift = &model.Shift{
		ID:          "shift-1",
		ShiftTypeID: "kitchen",
		Location:    "ilford",
		Start:       time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC),
		Capacity:    5,
	}
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func gradePtr(g model.Grade) *model.Grade { return &g }

func experiencedVolunteer() model.VolunteerFacts {
	return model.VolunteerFacts{
		VolunteerID:            "v1",
		Grade:                  model.GradeYellow,
		CompletedShifts:        12,
		AttendanceRate:         95,
		AccountAgeDays:         400,
		HasShiftTypeExperience: true,
	}
}

func TestCandidates_FiltersScopeAndLocation(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{ID: "global", Enabled: true, Global: true},
		{ID: "kitchen", Enabled: true, ShiftTypeID: "kitchen"},
		{ID: "frontdesk", Enabled: true, ShiftTypeID: "frontdesk"},
		{ID: "disabled", Enabled: false, Global: true},
		{ID: "other-location", Enabled: true, Global: true, LocationFilter: "barking"},
		{ID: "same-location", Enabled: true, Global: true, LocationFilter: "ilford"},
	}

	candidates := Candidates(ruleSet, testShift)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.ElementsMatch(t, []string{"global", "kitchen", "same-location"}, ids)
}

func TestCandidates_OrdersByPriorityThenRecency(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ruleSet := []model.AutoAcceptRule{
		{ID: "low", Enabled: true, Global: true, Priority: 1, CreatedAt: older},
		{ID: "high-old", Enabled: true, Global: true, Priority: 10, CreatedAt: older},
		{ID: "high-new", Enabled: true, Global: true, Priority: 10, CreatedAt: newer},
	}

	candidates := Candidates(ruleSet, testShift)

	require.Len(t, candidates, 3)
	assert.Equal(t, "high-new", candidates[0].ID)
	assert.Equal(t, "high-old", candidates[1].ID)
	assert.Equal(t, "low", candidates[2].ID)
}

func TestRuleMatches_ZeroConfiguredCriteriaNeverMatches(t *testing.T) {
	rule := model.AutoAcceptRule{ID: "empty", CriteriaLogic: model.CriteriaAnd}
	in := Input{Facts: experiencedVolunteer(), Shift: *testShift}

	assert.False(t, RuleMatches(&rule, in))
}

func TestRuleMatches_AndRequiresAll(t *testing.T) {
	rule := model.AutoAcceptRule{
		MinCompletedShifts: intPtr(10),
		MinAttendanceRate:  floatPtr(99),
		CriteriaLogic:      model.CriteriaAnd,
	}
	in := Input{Facts: experiencedVolunteer(), Shift: *testShift}

	// 12 completed passes, 95% attendance fails the 99% threshold.
	assert.False(t, RuleMatches(&rule, in))

	rule.MinAttendanceRate = floatPtr(90)
	assert.True(t, RuleMatches(&rule, in))
}

func TestRuleMatches_OrRequiresAny(t *testing.T) {
	rule := model.AutoAcceptRule{
		MinCompletedShifts: intPtr(100),
		MinAttendanceRate:  floatPtr(90),
		CriteriaLogic:      model.CriteriaOr,
	}
	in := Input{Facts: experiencedVolunteer(), Shift: *testShift}

	assert.True(t, RuleMatches(&rule, in))

	rule.MinAttendanceRate = floatPtr(99)
	assert.False(t, RuleMatches(&rule, in))
}

func TestRuleMatches_GradeOrdinal(t *testing.T) {
	rule := model.AutoAcceptRule{
		MinVolunteerGrade: gradePtr(model.GradeYellow),
		CriteriaLogic:     model.CriteriaAnd,
	}

	facts := experiencedVolunteer()
	in := Input{Facts: facts, Shift: *testShift}
	assert.True(t, RuleMatches(&rule, in))

	facts.Grade = model.GradePink
	in.Facts = facts
	assert.True(t, RuleMatches(&rule, in))

	facts.Grade = model.GradeGreen
	in.Facts = facts
	assert.False(t, RuleMatches(&rule, in))
}

func TestRuleMatches_MaxDaysInAdvance(t *testing.T) {
	rule := model.AutoAcceptRule{
		MaxDaysInAdvance: intPtr(2),
		CriteriaLogic:    model.CriteriaAnd,
	}
	in := Input{Facts: experiencedVolunteer(), Shift: *testShift, DaysUntilShift: 3}

	assert.False(t, RuleMatches(&rule, in))

	in.DaysUntilShift = 2
	assert.True(t, RuleMatches(&rule, in))
}

func TestRuleMatches_ShiftTypeExperience(t *testing.T) {
	rule := model.AutoAcceptRule{
		RequireShiftTypeExperience: true,
		CriteriaLogic:              model.CriteriaAnd,
	}

	facts := experiencedVolunteer()
	in := Input{Facts: facts, Shift: *testShift}
	assert.True(t, RuleMatches(&rule, in))

	facts.HasShiftTypeExperience = false
	in.Facts = facts
	assert.False(t, RuleMatches(&rule, in))
}

func TestEvaluate_HighestPriorityMatchWins(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "r2", Name: "loose", Enabled: true, Global: true, Priority: 5,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "r1", Name: "strict", Enabled: true, Global: true, Priority: 10,
			MinCompletedShifts: intPtr(10), CriteriaLogic: model.CriteriaAnd,
		},
	}

	decision := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)

	assert.True(t, decision.Eligible)
	assert.Equal(t, "r1", decision.MatchedRuleID)
	assert.Equal(t, "strict", decision.MatchedRuleName)
	assert.Equal(t, []string{"r2"}, decision.AlsoMatched)
	assert.Equal(t, 2, decision.Evaluated)
}

func TestEvaluate_PriorityBeatsCreationOrder(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "created-first", Enabled: true, Global: true, Priority: 1,
			CreatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "created-later", Enabled: true, Global: true, Priority: 20,
			CreatedAt:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
	}

	decision := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)

	assert.Equal(t, "created-later", decision.MatchedRuleID)
}

func TestEvaluate_StopOnMatchSuppressesAuditScan(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "winner", Enabled: true, Global: true, Priority: 10, StopOnMatch: true,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "also-matches", Enabled: true, Global: true, Priority: 5,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
	}

	decision := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)

	assert.True(t, decision.Eligible)
	assert.Equal(t, "winner", decision.MatchedRuleID)
	assert.Empty(t, decision.AlsoMatched)
	assert.Equal(t, 1, decision.Evaluated)
}

func TestEvaluate_AuditScanNeverChangesWinner(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "winner", Enabled: true, Global: true, Priority: 10,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "audit-1", Enabled: true, Global: true, Priority: 5,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "audit-2", Enabled: true, Global: true, Priority: 1,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
	}

	decision := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)

	assert.Equal(t, "winner", decision.MatchedRuleID)
	assert.Equal(t, []string{"audit-1", "audit-2"}, decision.AlsoMatched)
}

func TestEvaluate_NoMatchLeavesIneligible(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "strict", Enabled: true, Global: true,
			MinCompletedShifts: intPtr(100), CriteriaLogic: model.CriteriaAnd,
		},
	}

	decision := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)

	assert.False(t, decision.Eligible)
	assert.Empty(t, decision.MatchedRuleID)
	assert.Equal(t, 1, decision.Evaluated)
}

func TestEvaluate_Deterministic(t *testing.T) {
	ruleSet := []model.AutoAcceptRule{
		{
			ID: "a", Enabled: true, Global: true, Priority: 3,
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
		{
			ID: "b", Enabled: true, Global: true, Priority: 3,
			CreatedAt:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			MinCompletedShifts: intPtr(1), CriteriaLogic: model.CriteriaAnd,
		},
	}

	first := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)
	for i := 0; i < 10; i++ {
		again := Evaluate(ruleSet, experiencedVolunteer(), testShift, testNow)
		assert.Equal(t, first, again)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysUntil(now, now.Add(6*time.Hour)))
	assert.Equal(t, 1, daysUntil(now, now.Add(36*time.Hour)))
	assert.Equal(t, 0, daysUntil(now, now.Add(-time.Hour)))
}
