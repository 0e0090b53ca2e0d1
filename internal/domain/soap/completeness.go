package soap

// Section weights for the overall completeness percentage.
const (
	weightSubjective = 0.30
	weightObjective  = 0.25
	weightAssessment = 0.25
	weightPlan       = 0.20
)

// Score holds the completeness and compliance gates for a note.
type Score struct {
	Overall         float64            `json:"overall_completeness"`
	PerSection      map[string]float64 `json:"per_section"`
	Compliance      float64            `json:"compliance_score"`
	MissingFields   []string           `json:"missing_fields,omitempty"`
	ReadyForCommit  bool               `json:"ready_for_commit"`
}

// ScoreNote computes the weighted overall completeness, the compliance score
// and the commit gate. Completeness sub-scores each section by the fraction
// of its required fields populated; compliance deducts a fixed 10 points per
// missing mandatory field from 100.
func ScoreNote(n *Note, patientAgeKnown, hasSymptoms bool) Score {
	if n == nil {
		return Score{PerSection: map[string]float64{}, MissingFields: []string{"note"}}
	}

	subj := fractionPresent(
		n.Subjective.ChiefComplaint != "",
		n.Subjective.HistoryOfPresentIllness != "",
		n.Subjective.SymptomDuration != "",
	)
	obj := fractionPresent(
		len(n.Objective.Findings) > 0,
		len(n.Objective.ReportedMeasurements) > 0 || len(n.Objective.VitalSigns) > 0,
	)
	assess := fractionPresent(
		n.Assessment.PrimaryDiagnosis != "",
		len(n.Assessment.Differentials) > 0,
		n.Assessment.UrgencyLevel != "",
	)
	plan := fractionPresent(
		len(n.Plan.ImmediateActions) > 0,
		n.Plan.FollowUp != "",
		n.Plan.SafetyNetting != "",
	)

	overall := 100 * (subj*weightSubjective + obj*weightObjective +
		assess*weightAssessment + plan*weightPlan)

	var missing []string
	mandatory := []struct {
		name    string
		present bool
	}{
		{"chief_complaint", n.Subjective.ChiefComplaint != ""},
		{"history_of_present_illness", n.Subjective.HistoryOfPresentIllness != ""},
		{"primary_diagnosis", n.Assessment.PrimaryDiagnosis != ""},
		{"differentials", len(n.Assessment.Differentials) > 0},
		{"urgency_level", n.Assessment.UrgencyLevel != ""},
		{"clinical_reasoning", n.Assessment.ClinicalReasoning != ""},
		{"immediate_actions", len(n.Plan.ImmediateActions) > 0},
		{"follow_up", n.Plan.FollowUp != ""},
		{"time_to_action", n.Plan.TimeToAction != ""},
		{"patient_age", patientAgeKnown},
		{"symptom_record", hasSymptoms},
	}
	for _, f := range mandatory {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	compliance := 100 - 10*float64(len(missing))
	if compliance < 0 {
		compliance = 0
	}

	return Score{
		Overall: overall,
		PerSection: map[string]float64{
			SectionSubjective: 100 * subj,
			SectionObjective:  100 * obj,
			SectionAssessment: 100 * assess,
			SectionPlan:       100 * plan,
		},
		Compliance:     compliance,
		MissingFields:  missing,
		ReadyForCommit: overall >= 80 && compliance >= 90,
	}
}

func fractionPresent(fields ...bool) float64 {
	if len(fields) == 0 {
		return 0
	}
	present := 0
	for _, f := range fields {
		if f {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}
