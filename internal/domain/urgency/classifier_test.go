package urgency

import "testing"

func TestClassifyMildHeadacheIsLow(t *testing.T) {
	a := Classify(
		[]Symptom{{Name: "headache", Description: "mild headache, 2 days", Severity: SeverityLow, Intensity: 4}},
		Patient{Age: 35, AgeKnown: true},
		History{},
	)
	if a.Level != LevelLow {
		t.Errorf("level = %s, want LOW", a.Level)
	}
	if a.GravityScore > 3 {
		t.Errorf("gravity = %.1f, want <= 3", a.GravityScore)
	}
	if a.TimeToAction != "routine" {
		t.Errorf("time_to_action = %q, want routine", a.TimeToAction)
	}
}

func TestClassifyElderlyComorbidChestDiscomfortIsHigh(t *testing.T) {
	a := Classify(
		[]Symptom{
			{Name: "chest discomfort", Severity: SeverityHigh},
			{Name: "dyspnea on exertion", Severity: SeverityHigh},
		},
		Patient{Age: 68, AgeKnown: true, Comorbidities: []string{"diabetes", "hypertension"}},
		History{ExSmoker: true},
	)
	// base 7 (high bucket) + 1.0 age + 0.5 + 0.5 comorbidities = 9.0
	if a.GravityScore != 9 {
		t.Errorf("gravity = %.1f, want 9.0", a.GravityScore)
	}
	if a.Level != LevelHigh {
		t.Errorf("level = %s, want HIGH (modifier-boosted scores cap below CRITICAL)", a.Level)
	}
}

func TestClassifyTearingChestPainIsCriticalOverride(t *testing.T) {
	a := Classify(
		[]Symptom{{
			Name:        "chest pain",
			Description: "sudden tearing chest pain radiating to back, 20 min",
			Severity:    SeverityMedium, // override must ignore the bucket
		}},
		Patient{Age: 52, AgeKnown: true},
		History{},
	)
	if a.Level != LevelCritical {
		t.Fatalf("level = %s, want CRITICAL", a.Level)
	}
	if a.GravityScore != 10 {
		t.Errorf("gravity = %.1f, want 10", a.GravityScore)
	}
	if a.TimeToAction != "immediate" {
		t.Errorf("time_to_action = %q, want immediate", a.TimeToAction)
	}
	if len(a.IdentifiedPatterns) == 0 || a.IdentifiedPatterns[0] != "aortic dissection" {
		t.Errorf("patterns = %v, want aortic dissection first", a.IdentifiedPatterns)
	}
}

func TestClassifyWidowMakerNeedsFamilyHistory(t *testing.T) {
	symptoms := []Symptom{
		{Name: "chest pain", Severity: SeverityHigh},
		{Name: "diaphoresis", Severity: SeverityMedium},
	}
	without := Classify(symptoms, Patient{Age: 50, AgeKnown: true}, History{})
	if without.Level == LevelCritical {
		t.Error("widow maker should not fire without family history of MI")
	}

	with := Classify(symptoms, Patient{Age: 50, AgeKnown: true}, History{FamilyHistoryMI: true})
	if with.Level != LevelCritical {
		t.Fatalf("level = %s, want CRITICAL with family history", with.Level)
	}
	if with.IdentifiedPatterns[0] != "widow maker" {
		t.Errorf("patterns = %v, want widow maker", with.IdentifiedPatterns)
	}
}

func TestClassifyGravityClampedAtTen(t *testing.T) {
	a := Classify(
		[]Symptom{{Name: "unresponsive", Severity: SeverityCritical}},
		Patient{Age: 80, AgeKnown: true, Comorbidities: []string{"diabetes", "COPD", "heart disease", "immunosuppression"}},
		History{},
	)
	if a.GravityScore > 10 {
		t.Errorf("gravity = %.1f, must be clamped to 10", a.GravityScore)
	}
	if a.Level != LevelCritical {
		t.Errorf("level = %s, want CRITICAL for base-critical bucket", a.Level)
	}
}

func TestClassifyInfantModifier(t *testing.T) {
	a := Classify(
		[]Symptom{{Name: "fever", Severity: SeverityMedium}},
		Patient{Age: 0, AgeKnown: true},
		History{},
	)
	// base 5 + 1.5 infant = 6.5 -> MEDIUM
	if a.GravityScore != 6.5 {
		t.Errorf("gravity = %.1f, want 6.5", a.GravityScore)
	}
	if a.Level != LevelMedium {
		t.Errorf("level = %s, want MEDIUM", a.Level)
	}
}

func TestClassifyPregnancyRelevantSymptom(t *testing.T) {
	a := Classify(
		[]Symptom{{Name: "abdominal pain", Severity: SeverityMedium}},
		Patient{Age: 30, AgeKnown: true, Pregnant: true},
		History{},
	)
	// base 5 + 1.0 pregnancy = 6.0
	if a.GravityScore != 6 {
		t.Errorf("gravity = %.1f, want 6.0", a.GravityScore)
	}

	b := Classify(
		[]Symptom{{Name: "sore wrist", Severity: SeverityLow}},
		Patient{Age: 30, AgeKnown: true, Pregnant: true},
		History{},
	)
	if b.GravityScore != 3 {
		t.Errorf("irrelevant symptom gravity = %.1f, want 3.0 (no pregnancy modifier)", b.GravityScore)
	}
}

func TestClassifyNoSymptoms(t *testing.T) {
	a := Classify(nil, Patient{}, History{})
	if a.GravityScore != 0 || a.Level != LevelLow {
		t.Errorf("empty input = (%.1f, %s), want (0, LOW)", a.GravityScore, a.Level)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	symptoms := []Symptom{{Name: "chest pain", Description: "tearing, radiating to back", Severity: SeverityHigh}}
	p := Patient{Age: 52, AgeKnown: true}
	first := Classify(symptoms, p, History{})
	for i := 0; i < 10; i++ {
		if got := Classify(symptoms, p, History{}); got.GravityScore != first.GravityScore || got.Level != first.Level {
			t.Fatalf("classification is not deterministic: %+v vs %+v", got, first)
		}
	}
}
