package consultation

import (
	"reflect"
	"testing"
)

func TestDecideNextIteration(t *testing.T) {
	cases := []struct {
		name         string
		completeness float64
		missing      []string
		iteration    int
		wantContinue bool
		wantReason   string
	}{
		{"threshold met", 85, nil, 2, false, SettleCompletenessMet},
		{"threshold exactly", 80, nil, 1, false, SettleCompletenessMet},
		{"below threshold continues", 79.9, []string{"symptom duration"}, 1, true, ""},
		{"budget exhausted", 40, []string{"patient age"}, 5, false, SettleBudgetExhausted},
		{"budget exhausted beats low completeness", 0, nil, 6, false, SettleBudgetExhausted},
		{"threshold wins over budget", 90, nil, 5, false, SettleCompletenessMet},
		{"first iteration", 0, nil, 0, true, ""},
		{"fourth iteration still continues", 60, []string{"context"}, 4, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecideNextIteration(tc.completeness, tc.missing, tc.iteration)
			if got.Continue != tc.wantContinue {
				t.Errorf("Continue = %v, want %v", got.Continue, tc.wantContinue)
			}
			if got.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tc.wantReason)
			}
			if tc.wantContinue && !reflect.DeepEqual(got.FocusAreas, tc.missing) {
				t.Errorf("FocusAreas = %v, want %v", got.FocusAreas, tc.missing)
			}
		})
	}
}
