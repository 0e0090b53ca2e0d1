package consultation

// Extraction loop bounds. The loop stops at the first of: completeness
// reaching the threshold, the iteration budget running out, or a CRITICAL
// urgency override.
const (
	CompletenessThreshold = 80.0
	MaxIterations         = 5
)

// IterationDecision is the stopping-rule verdict for the next oracle call.
type IterationDecision struct {
	Continue   bool
	FocusAreas []string
	Reason     string
}

// DecideNextIteration applies the stopping rule to the latest extraction
// snapshot. iteration is the number of oracle calls already made this
// consultation, productive or not.
func DecideNextIteration(completeness float64, missingCritical []string, iteration int) IterationDecision {
	if completeness >= CompletenessThreshold {
		return IterationDecision{Reason: SettleCompletenessMet}
	}
	if iteration >= MaxIterations {
		// Forced-complete: progression to SOAP generation happens anyway;
		// the commit gates are what ultimately block an under-specified note.
		return IterationDecision{Reason: SettleBudgetExhausted}
	}
	return IterationDecision{Continue: true, FocusAreas: missingCritical}
}
