// Package rules evaluates a volunteer/shift pair against the configured
// auto-accept rules to decide instant approval.
//
// Evaluation is a pure function of its inputs: given the same rule set,
// facts and time, it always returns the same decision. Persisting the
// grant and counting it against the matched rule is the caller's job.
package rules

import (
	"sort"
	"time"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// Decision is the outcome of evaluating the rule set for one signup.
type Decision struct {
	// Eligible is true when some rule matched and the signup may be
	// confirmed without manual review.
	Eligible bool

	// MatchedRuleID identifies the winning rule. The first match in
	// priority order always wins; later matches never replace it.
	MatchedRuleID   string
	MatchedRuleName string

	// AlsoMatched lists lower-priority rules that would also have
	// matched. It is populated for auditing only, and only when the
	// winning rule has StopOnMatch disabled.
	AlsoMatched []string

	// Evaluated counts the candidate rules actually evaluated.
	Evaluated int
}

// Candidates filters the rule set down to rules applicable to the shift:
// enabled, in scope (global or matching shift type), and with no location
// filter or a matching one. The result is sorted by priority descending,
// ties broken by creation time descending (most recently created wins).
func Candidates(ruleSet []model.AutoAcceptRule, shift *model.Shift) []model.AutoAcceptRule {
	candidates := make([]model.AutoAcceptRule, 0, len(ruleSet))
	for _, rule := range ruleSet {
		if !rule.Enabled {
			continue
		}
		if !rule.Global && rule.ShiftTypeID != shift.ShiftTypeID {
			continue
		}
		if rule.LocationFilter != "" && rule.LocationFilter != shift.Location {
			continue
		}
		candidates = append(candidates, rule)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	return candidates
}

// RuleMatches evaluates a single rule's configured criteria against the
// input, combining them with the rule's AND/OR logic. A rule with zero
// configured criteria never matches.
func RuleMatches(rule *model.AutoAcceptRule, in Input) bool {
	configured := 0
	met := 0

	for _, criterion := range vocabulary {
		if !criterion.Configured(rule) {
			continue
		}
		configured++
		if criterion.Met(rule, in) {
			met++
		}
	}

	if configured == 0 {
		return false
	}

	if rule.CriteriaLogic == model.CriteriaOr {
		return met > 0
	}
	return met == configured
}

// Evaluate runs the full rule evaluation for a volunteer/shift pair.
//
// The first matching rule in candidate order wins. When the winner has
// StopOnMatch disabled, the remaining candidates are still scanned so
// additional would-be matches can be recorded for auditing; StopOnMatch
// suppresses that scan. The audit scan never changes the winner.
func Evaluate(ruleSet []model.AutoAcceptRule, facts model.VolunteerFacts, shift *model.Shift, now time.Time) Decision {
	in := Input{
		Facts:          facts,
		Shift:          *shift,
		DaysUntilShift: daysUntil(now, shift.Start),
	}

	decision := Decision{}

	for _, rule := range Candidates(ruleSet, shift) {
		decision.Evaluated++

		if !RuleMatches(&rule, in) {
			continue
		}

		if !decision.Eligible {
			decision.Eligible = true
			decision.MatchedRuleID = rule.ID
			decision.MatchedRuleName = rule.Name
			if rule.StopOnMatch {
				break
			}
			continue
		}

		decision.AlsoMatched = append(decision.AlsoMatched, rule.ID)
	}

	return decision
}

// daysUntil returns the number of whole days between now and the shift
// start. A shift later today counts as 0 days away.
func daysUntil(now, start time.Time) int {
	diff := start.Sub(now)
	if diff < 0 {
		return 0
	}
	return int(diff.Hours() / 24)
}
