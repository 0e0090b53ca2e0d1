package urgency

import "strings"

// Comorbidities that add +0.5 each to the gravity score.
var scoredComorbidities = []string{
	"diabetes",
	"hypertension",
	"copd",
	"heart disease",
	"immunosuppression",
}

// Symptom terms that make pregnancy a relevant +1.0 modifier.
var pregnancyRelevantTerms = []string{
	"abdominal", "pelvic", "bleeding", "headache", "vision", "swelling", "contraction",
}

// Classify computes the urgency assessment for the extracted symptoms,
// patient attributes and history.
//
// A critical-pattern match is a hard override: gravity 10, level CRITICAL,
// regardless of the weighted formula. Otherwise the base gravity is the
// worst severity bucket among the symptoms (critical=9, high=7, medium=5,
// low=3), additive modifiers are applied, and the result is clamped to
// [0, 10].
func Classify(symptoms []Symptom, patient Patient, history History) Assessment {
	patterns := MatchPatterns(symptoms, history)
	if len(patterns) > 0 {
		return Assessment{
			GravityScore:       10,
			Level:              LevelCritical,
			TimeToAction:       timeToAction(LevelCritical),
			IdentifiedPatterns: patterns,
		}
	}

	base := baseGravity(symptoms)
	modifiers := scoreModifiers(symptoms, patient)
	gravity := clamp(base+modifiers, 0, 10)

	level := levelFor(gravity)
	// Modifier-boosted scores do not escalate past HIGH on their own; the
	// CRITICAL band is reserved for a critical symptom bucket or a pattern
	// override.
	if level == LevelCritical && base < 9 {
		level = LevelHigh
	}

	return Assessment{
		GravityScore: gravity,
		Level:        level,
		TimeToAction: timeToAction(level),
	}
}

func baseGravity(symptoms []Symptom) float64 {
	if len(symptoms) == 0 {
		return 0
	}
	base := 3.0
	for _, s := range symptoms {
		var g float64
		switch s.Severity {
		case SeverityCritical:
			g = 9
		case SeverityHigh:
			g = 7
		case SeverityMedium:
			g = 5
		default:
			g = 3
		}
		if g > base {
			base = g
		}
	}
	return base
}

func scoreModifiers(symptoms []Symptom, patient Patient) float64 {
	var m float64
	if patient.AgeKnown {
		if patient.Age > 65 {
			m += 1.0
		}
		if patient.Age < 1 {
			m += 1.5
		}
	}
	for _, c := range patient.Comorbidities {
		lc := strings.ToLower(c)
		for _, scored := range scoredComorbidities {
			if strings.Contains(lc, scored) {
				m += 0.5
				break
			}
		}
	}
	if patient.Pregnant && hasPregnancyRelevantSymptom(symptoms) {
		m += 1.0
	}
	return m
}

func hasPregnancyRelevantSymptom(symptoms []Symptom) bool {
	for _, s := range symptoms {
		text := strings.ToLower(s.Name + " " + s.Description)
		for _, term := range pregnancyRelevantTerms {
			if strings.Contains(text, term) {
				return true
			}
		}
	}
	return false
}

func levelFor(gravity float64) Level {
	switch {
	case gravity >= 9:
		return LevelCritical
	case gravity >= 7:
		return LevelHigh
	case gravity >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

func timeToAction(level Level) string {
	switch level {
	case LevelCritical:
		return "immediate"
	case LevelHigh:
		return "within 1 hour"
	case LevelMedium:
		return "within 24 hours"
	default:
		return "routine"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
