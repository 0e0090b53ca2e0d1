package urgency

import "strings"

// CriticalPattern names a symptom constellation that overrides the scoring
// formula outright. Every term group must be matched by at least one symptom
// (name or description, case-insensitive) for the pattern to fire. Patterns
// that additionally require a history flag set RequiresHistory.
type CriticalPattern struct {
	Name            string
	Gravity         float64
	TermGroups      [][]string
	RequiresHistory func(h History) bool
}

// criticalPatterns is scanned in declared order. When several patterns match,
// the highest gravity wins; on equal gravity the first declared wins.
var criticalPatterns = []CriticalPattern{
	{
		Name:    "aortic dissection",
		Gravity: 10,
		TermGroups: [][]string{
			{"tearing", "ripping"},
			{"chest"},
			{"back", "radiating to back", "between the shoulder"},
		},
	},
	{
		Name:    "widow maker",
		Gravity: 10,
		TermGroups: [][]string{
			{"chest pain", "chest pressure", "chest discomfort"},
			{"diaphoresis", "sweating", "cold sweat"},
		},
		RequiresHistory: func(h History) bool { return h.FamilyHistoryMI },
	},
	{
		Name:    "stroke",
		Gravity: 10,
		TermGroups: [][]string{
			{"facial droop", "slurred speech", "one-sided weakness", "hemiparesis"},
		},
	},
	{
		Name:    "anaphylaxis",
		Gravity: 10,
		TermGroups: [][]string{
			{"swelling", "hives", "allergic"},
			{"breath", "throat", "wheez"},
		},
	},
	{
		Name:    "pulmonary embolism",
		Gravity: 9.5,
		TermGroups: [][]string{
			{"sudden shortness of breath", "sudden dyspnea"},
			{"pleuritic", "chest pain on breathing", "coughing blood", "hemoptysis"},
		},
	},
	{
		Name:    "meningitis",
		Gravity: 9.5,
		TermGroups: [][]string{
			{"stiff neck", "neck stiffness"},
			{"fever"},
			{"headache", "photophobia", "light sensitivity"},
		},
	},
	{
		Name:    "sepsis",
		Gravity: 9.5,
		TermGroups: [][]string{
			{"fever", "hypothermia"},
			{"confusion", "altered mental", "mottled", "rigors"},
		},
	},
	{
		Name:    "ectopic pregnancy",
		Gravity: 9.5,
		TermGroups: [][]string{
			{"abdominal pain", "pelvic pain"},
			{"vaginal bleeding", "missed period", "pregnan"},
		},
	},
}

// MatchPatterns returns the names of all critical patterns matched by the
// given symptoms and history, ordered by gravity descending with scan order
// breaking ties. An empty result means no hard override applies.
func MatchPatterns(symptoms []Symptom, history History) []string {
	var matched []CriticalPattern
	for _, p := range criticalPatterns {
		if p.RequiresHistory != nil && !p.RequiresHistory(history) {
			continue
		}
		if p.matches(symptoms) {
			matched = append(matched, p)
		}
	}
	// Stable insertion sort keeps scan order on equal gravity.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].Gravity > matched[j-1].Gravity; j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	names := make([]string, len(matched))
	for i, p := range matched {
		names[i] = p.Name
	}
	return names
}

func (p CriticalPattern) matches(symptoms []Symptom) bool {
	for _, group := range p.TermGroups {
		if !groupMatched(group, symptoms) {
			return false
		}
	}
	return true
}

func groupMatched(terms []string, symptoms []Symptom) bool {
	for _, s := range symptoms {
		text := strings.ToLower(s.Name + " " + s.Description)
		for _, term := range terms {
			if strings.Contains(text, term) {
				return true
			}
		}
	}
	return false
}
