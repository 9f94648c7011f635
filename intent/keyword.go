package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/c360studio/dqagent/rule"
	"github.com/c360studio/dqagent/session"
)

// KeywordRouter classifies turns with deterministic keyword heuristics.
// It serves as the fallback when no LLM is configured or when the LLM
// router's reply cannot be parsed.
type KeywordRouter struct{}

// NewKeywordRouter creates a keyword-based router.
func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

var (
	// quotedNameRe matches a rule name in single quotes, double quotes,
	// or backticks.
	quotedNameRe = regexp.MustCompile("[`'\"]([A-Za-z0-9_.-]+)[`'\"]")
	// namedRe matches "named foo" / "called foo" constructions.
	namedRe = regexp.MustCompile(`(?i)\b(?:named|called)\s+([A-Za-z0-9_.-]+)`)
	// ruleTokenRe matches a bare identifier following the word "rule".
	ruleTokenRe = regexp.MustCompile(`(?i)\brule\s+([A-Za-z0-9_][A-Za-z0-9_.-]*[A-Za-z0-9_])`)
)

// ruleTypes are the check categories the original workflow recognizes.
var ruleTypes = []string{
	"anomal", "format", "null", "unique", "duplicate", "freshness", "complete",
}

// Classify routes a turn using keyword matching only.
func (r *KeywordRouter) Classify(_ context.Context, turn string, _ *session.Context) (Classification, error) {
	lower := strings.ToLower(turn)

	// Creation and update verbs are checked before delete: a rule can
	// be about removing or dropping rows ("a rule that removes
	// duplicate orders") without being a delete request.
	switch {
	case containsAny(lower, "create", "generate", "add", "make", "new") && strings.Contains(lower, "rule"):
		return classifyGenerate(turn, lower), nil
	case containsAny(lower, "update", "modify", "change") && strings.Contains(lower, "rule"):
		return classifyUpdate(turn), nil
	case containsAny(lower, "delete", "remove", "drop"):
		return classifyDelete(turn), nil
	case containsAny(lower, "list", "show", "search", "find", "read", "what rules", "which rules"):
		return classifyRead(turn, lower), nil
	case strings.Contains(lower, "?") || containsAny(lower, "how many", "how much", "average", "count", "top ", "distribution"):
		return Classification{Intent: Explore, Question: turn}, nil
	}

	return Classification{
		Intent:        Clarify,
		ClarifyPrompt: "I can create, list, update, or delete data quality rules, or answer questions about your data. What would you like to do?",
	}, nil
}

func classifyDelete(turn string) Classification {
	name := extractRuleName(turn)
	if name == "" {
		return Classification{
			Intent:        Clarify,
			ClarifyPrompt: "Which rule should I delete? Please give its exact name.",
		}
	}
	return Classification{Intent: Delete, RuleName: name}
}

func classifyUpdate(turn string) Classification {
	name := extractRuleName(turn)
	if name == "" {
		return Classification{
			Intent:        Clarify,
			ClarifyPrompt: "Which rule should I update? Please give its exact name.",
		}
	}

	c := Classification{Intent: Update, RuleName: name}
	// "... description to <text>" carries the replacement description.
	if m := regexp.MustCompile(`(?i)description\s+to\s+(.+)$`).FindStringSubmatch(turn); len(m) > 1 {
		c.Description = strings.Trim(strings.TrimSpace(m[1]), `"'`)
	}
	return c
}

func classifyGenerate(turn, lower string) Classification {
	c := Classification{Intent: Generate, Question: turn}
	for _, t := range ruleTypes {
		if strings.Contains(lower, t) {
			c.RuleType = t
			break
		}
	}
	if c.RuleType == "" {
		return Classification{
			Intent: Clarify,
			ClarifyPrompt: "What type of data quality rule would you like? " +
				"For example: anomalies, formatting, null checks, or unique counts.",
		}
	}
	if name := extractRuleName(turn); name != "" {
		c.RuleName = name
	}
	return c
}

func classifyRead(turn, lower string) Classification {
	c := Classification{Intent: Read}
	if hasWord(lower, "all") || hasWord(lower, "every") || hasWord(lower, "everything") {
		c.Filter = rule.Filter{All: true}
		return c
	}
	if name := extractRuleName(turn); name != "" {
		c.Filter = rule.Filter{Name: name}
		return c
	}
	// Fall back to keyword search over the remaining words.
	if kw := searchKeyword(lower); kw != "" {
		c.Filter = rule.Filter{Keyword: kw}
		return c
	}
	return Classification{
		Intent:        Clarify,
		ClarifyPrompt: "What rule are you looking for? Give a name, a keyword, or say \"all\".",
	}
}

// extractRuleName pulls a rule name out of a turn: quoted, backticked,
// "named X"/"called X", or the identifier after the word "rule".
func extractRuleName(turn string) string {
	if m := quotedNameRe.FindStringSubmatch(turn); len(m) > 1 {
		return m[1]
	}
	if m := namedRe.FindStringSubmatch(turn); len(m) > 1 {
		return m[1]
	}
	if m := ruleTokenRe.FindStringSubmatch(turn); len(m) > 1 {
		// Identifiers carry an underscore, dot, or dash; a plain word
		// after "rule" is usually prose, not a name.
		if strings.ContainsAny(m[1], "_.-") {
			return m[1]
		}
	}
	return ""
}

// searchKeyword extracts a search term from a read request, dropping
// the command words themselves.
func searchKeyword(lower string) string {
	stop := map[string]bool{
		"list": true, "show": true, "search": true, "find": true, "read": true,
		"me": true, "my": true, "the": true, "a": true, "an": true, "for": true,
		"rules": true, "rule": true, "quality": true, "data": true, "dq": true,
		"please": true, "can": true, "you": true, "what": true, "which": true,
		"exist": true, "existing": true, "about": true,
	}
	var kept []string
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?\"'`")
		if w == "" || stop[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// hasWord reports whether word appears as a whole token. Substring
// matching is wrong here: "called" contains "all".
func hasWord(s, word string) bool {
	for _, w := range strings.Fields(s) {
		if strings.Trim(w, ".,!?\"'`") == word {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
