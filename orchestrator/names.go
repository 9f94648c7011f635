package orchestrator

import (
	"regexp"
	"strings"
)

// maxRuleNameLen bounds derived and user-supplied rule names.
const maxRuleNameLen = 128

// qualifiedColumnRe matches table.column references like
// "orders.customer_id" in a natural-language request.
var qualifiedColumnRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+)\b`)

// ruleTypeSuffixes maps the check category to the suffix used in
// derived rule names.
var ruleTypeSuffixes = map[string]string{
	"null":      "null_check",
	"anomal":    "anomaly_check",
	"format":    "format_check",
	"unique":    "unique_count",
	"duplicate": "duplicate_check",
	"freshness": "freshness_check",
	"complete":  "completeness_check",
}

// deriveRuleName builds a rule name from the request when the user did
// not supply one: the qualified table/column reference (dots flattened
// to underscores) plus a suffix for the check category, e.g.
// "orders.customer_id" + null checks -> orders_customer_id_null_check.
func deriveRuleName(question, ruleType string) string {
	var base string
	if m := qualifiedColumnRe.FindString(question); m != "" {
		base = strings.ReplaceAll(m, ".", "_")
	} else {
		base = slug(question, 4)
	}

	suffix := "dq_check"
	lower := strings.ToLower(ruleType)
	for key, s := range ruleTypeSuffixes {
		if strings.Contains(lower, key) {
			suffix = s
			break
		}
	}

	name := base + "_" + suffix
	if len(name) > maxRuleNameLen {
		name = name[:maxRuleNameLen]
	}
	return strings.Trim(name, "_")
}

// sanitizeRuleName normalizes a user-supplied name to an identifier, or
// returns "" if nothing usable remains.
func sanitizeRuleName(input string) string {
	input = strings.Trim(strings.TrimSpace(input), "`'\"")
	// Single token: keep word characters, flatten dots and dashes.
	if strings.ContainsAny(input, " \t") {
		return ""
	}
	input = strings.ReplaceAll(input, ".", "_")
	input = strings.ReplaceAll(input, "-", "_")
	if !regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`).MatchString(input) {
		return ""
	}
	if len(input) > maxRuleNameLen {
		input = input[:maxRuleNameLen]
	}
	return input
}

// slug keeps the first n meaningful words of text as an underscore
// identifier.
func slug(text string, n int) string {
	stop := map[string]bool{
		"a": true, "an": true, "the": true, "for": true, "of": true,
		"create": true, "generate": true, "add": true, "make": true, "new": true,
		"rule": true, "please": true, "table": true, "on": true, "in": true,
	}
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
				return r
			}
			return -1
		}, w)
		if w == "" || stop[w] {
			continue
		}
		words = append(words, w)
		if len(words) == n {
			break
		}
	}
	if len(words) == 0 {
		return "rule"
	}
	return strings.Join(words, "_")
}
