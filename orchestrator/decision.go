package orchestrator

import "strings"

// decision is the user's response to a pending approval.
type decision int

const (
	decisionUnknown decision = iota
	decisionApprove
	decisionRevise
	decisionAbandon
)

// approveWords and abandonWords match a whole first word; revise is
// keyed off leading verbs so the rest of the turn can carry feedback.
var (
	approveWords = map[string]bool{
		"approve": true, "approved": true, "yes": true, "y": true,
		"ok": true, "okay": true, "lgtm": true, "save": true, "confirm": true,
	}
	abandonWords = map[string]bool{
		"abandon": true, "cancel": true, "discard": true, "no": true,
		"stop": true, "nevermind": true, "forget": true, "quit": true,
	}
	reviseWords = map[string]bool{
		"revise": true, "change": true, "modify": true, "adjust": true,
		"instead": true, "actually": true, "edit": true, "redo": true,
	}
)

// parseDecision interprets a turn received while approval is pending.
// For a revise decision, the remainder of the turn is returned as
// feedback for the next generation round.
func parseDecision(turn string) (decision, string) {
	trimmed := strings.TrimSpace(turn)
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return decisionUnknown, ""
	}

	first := strings.Trim(fields[0], ".,!:;")
	switch {
	case approveWords[first] && len(fields) == 1:
		return decisionApprove, ""
	case abandonWords[first] && len(fields) <= 2:
		return decisionAbandon, ""
	case reviseWords[first]:
		feedback := strings.TrimSpace(trimmed[len(fields[0]):])
		feedback = strings.TrimPrefix(feedback, ":")
		return decisionRevise, strings.TrimSpace(feedback)
	}

	// A longer message that isn't an explicit approve/abandon is read
	// as revision feedback; silently persisting on an unclear reply
	// would break the approval gate.
	if len(fields) > 3 {
		return decisionRevise, trimmed
	}
	return decisionUnknown, ""
}
