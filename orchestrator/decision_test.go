package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		turn         string
		want         decision
		wantFeedback string
	}{
		{"approve", decisionApprove, ""},
		{"yes", decisionApprove, ""},
		{"ok.", decisionApprove, ""},
		{"LGTM", decisionApprove, ""},

		{"abandon", decisionAbandon, ""},
		{"cancel it", decisionAbandon, ""},
		{"no", decisionAbandon, ""},

		{"revise use COUNT(*) instead", decisionRevise, "use COUNT(*) instead"},
		{"revise: drop the date filter", decisionRevise, "drop the date filter"},
		{"actually it should only cover recent orders", decisionRevise, "it should only cover recent orders"},

		// A long message that names no decision is feedback, never
		// consent.
		{"it should also ignore cancelled orders entirely", decisionRevise, "it should also ignore cancelled orders entirely"},

		// Consent must be unambiguous: an approve word opening a longer
		// sentence reads as a revision request, not approval.
		{"yes but change the threshold", decisionRevise, "yes but change the threshold"},
		{"hmm", decisionUnknown, ""},
		{"", decisionUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.turn, func(t *testing.T) {
			got, feedback := parseDecision(tt.turn)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFeedback, feedback)
		})
	}
}
