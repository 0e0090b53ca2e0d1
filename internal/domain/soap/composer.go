package soap

import (
	"sort"
	"strings"

	"github.com/consult/consult/internal/domain/urgency"
)

// Comorbidity profiles that activate defensive mode even without a red flag.
var highRiskComorbidities = []string{"heart disease", "copd", "immunosuppression"}

// DefensiveModeActive reports whether differentials must be ranked with the
// worst-case-weighted formula: any red-flag / critical pattern match, a
// CRITICAL or HIGH urgency level, or a high-risk comorbidity profile.
func DefensiveModeActive(assessment urgency.Assessment, patient urgency.Patient) bool {
	if len(assessment.IdentifiedPatterns) > 0 {
		return true
	}
	if assessment.Level == urgency.LevelCritical || assessment.Level == urgency.LevelHigh {
		return true
	}
	for _, c := range patient.Comorbidities {
		lc := strings.ToLower(c)
		for _, hr := range highRiskComorbidities {
			if strings.Contains(lc, hr) {
				return true
			}
		}
	}
	return false
}

// RankDifferentials computes the active score for each differential and
// sorts descending by it. Defensive mode weights gravity 0.7 / probability
// 0.3; standard mode weights gravity 0.3 / probability 0.7. The sort is
// stable so equal scores keep their proposed order.
func RankDifferentials(diffs []Differential, defensive bool) []Differential {
	ranked := make([]Differential, len(diffs))
	copy(ranked, diffs)
	for i := range ranked {
		if defensive {
			ranked[i].DefensiveScore = ranked[i].Gravity*0.7 + ranked[i].Probability*0.3
		} else {
			ranked[i].DefensiveScore = ranked[i].Gravity*0.3 + ranked[i].Probability*0.7
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DefensiveScore > ranked[j].DefensiveScore
	})
	return ranked
}

// ComposeAssessment builds the Assessment section: the top-ranked
// differential becomes the primary diagnosis.
func ComposeAssessment(diffs []Differential, assessment urgency.Assessment, patient urgency.Patient, reasoning string) Assessment {
	defensive := DefensiveModeActive(assessment, patient)
	ranked := RankDifferentials(diffs, defensive)

	primary := ""
	if len(ranked) > 0 {
		primary = ranked[0].Condition
	}
	return Assessment{
		PrimaryDiagnosis:  primary,
		Differentials:     ranked,
		ClinicalReasoning: reasoning,
		UrgencyLevel:      assessment.Level,
		DefensiveMode:     defensive,
	}
}

// ComposePlan derives the Plan section from the urgency assessment and the
// assessment section. Immediate actions escalate with the urgency level.
func ComposePlan(assessment urgency.Assessment, note Assessment) Plan {
	p := Plan{
		TimeToAction: assessment.TimeToAction,
	}
	switch assessment.Level {
	case urgency.LevelCritical:
		p.ImmediateActions = []string{"activate emergency services", "do not leave patient unattended"}
		p.FollowUp = "emergency department, now"
		p.SafetyNetting = "call emergency services immediately if condition changes"
	case urgency.LevelHigh:
		p.ImmediateActions = []string{"urgent clinical review"}
		p.FollowUp = "same-day urgent care assessment"
		p.SafetyNetting = "go to the emergency department if symptoms worsen"
	case urgency.LevelMedium:
		p.ImmediateActions = []string{"book primary care appointment"}
		p.FollowUp = "primary care within 24 hours"
		p.SafetyNetting = "seek urgent care if symptoms escalate or new symptoms appear"
	default:
		p.ImmediateActions = []string{"symptomatic self-care"}
		p.FollowUp = "routine follow-up if symptoms persist beyond a week"
		p.SafetyNetting = "seek care if symptoms worsen significantly"
	}
	if note.DefensiveMode {
		p.Diagnostics = append(p.Diagnostics, "rule-out workup for high-gravity differentials")
	}
	return p
}
