package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dqagent/rule"
)

func TestKeywordRouterClassify(t *testing.T) {
	tests := []struct {
		name string
		turn string
		want Classification
	}{
		{
			name: "generate with rule type and target column",
			turn: "Create a null check rule for the customer_id column in orders",
			want: Classification{
				Intent:   Generate,
				RuleType: "null",
				Question: "Create a null check rule for the customer_id column in orders",
			},
		},
		{
			name: "generate with explicit name",
			turn: `generate a freshness rule named orders_freshness for table orders`,
			want: Classification{
				Intent:   Generate,
				RuleType: "freshness",
				RuleName: "orders_freshness",
				Question: `generate a freshness rule named orders_freshness for table orders`,
			},
		},
		{
			name: "generate mentioning row removal stays generate",
			turn: "create a rule that removes duplicate orders",
			want: Classification{
				Intent:   Generate,
				RuleType: "duplicate",
				Question: "create a rule that removes duplicate orders",
			},
		},
		{
			name: "delete with quoted name",
			turn: `delete rule "orders_null_check"`,
			want: Classification{Intent: Delete, RuleName: "orders_null_check"},
		},
		{
			name: "delete with backticked name",
			turn: "remove the rule `orders.freshness`",
			want: Classification{Intent: Delete, RuleName: "orders.freshness"},
		},
		{
			name: "update with replacement description",
			turn: "update rule orders_null_check description to Flags null customer ids",
			want: Classification{
				Intent:      Update,
				RuleName:    "orders_null_check",
				Description: "Flags null customer ids",
			},
		},
		{
			name: "read all",
			turn: "list all my rules",
			want: Classification{Intent: Read, Filter: rule.Filter{All: true}},
		},
		{
			name: "read by name",
			turn: `show me the rule called orders_null_check`,
			want: Classification{Intent: Read, Filter: rule.Filter{Name: "orders_null_check"}},
		},
		{
			name: "read by keyword",
			turn: "list rules about orders",
			want: Classification{Intent: Read, Filter: rule.Filter{Keyword: "orders"}},
		},
		{
			name: "explore question",
			turn: "How many orders were placed yesterday?",
			want: Classification{Intent: Explore, Question: "How many orders were placed yesterday?"},
		},
	}

	r := NewKeywordRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Classify(context.Background(), tt.turn, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordRouterClarifies(t *testing.T) {
	tests := []struct {
		name string
		turn string
	}{
		{"generate without rule type", "create a rule for the orders table"},
		{"delete without name", "delete that rule"},
		{"update without name", "change the rule please"},
		{"unrecognized turn", "hello there"},
	}

	r := NewKeywordRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Classify(context.Background(), tt.turn, nil)
			require.NoError(t, err)
			assert.Equal(t, Clarify, got.Intent)
			assert.NotEmpty(t, got.ClarifyPrompt)
		})
	}
}

func TestExtractRuleName(t *testing.T) {
	tests := []struct {
		turn string
		want string
	}{
		{`delete rule 'orders_null_check'`, "orders_null_check"},
		{"the rule named revenue.daily-totals", "revenue.daily-totals"},
		{"delete rule orders_null_check now", "orders_null_check"},
		{"delete the rule for orders", ""},
		{"remove something", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractRuleName(tt.turn), "turn: %s", tt.turn)
	}
}
