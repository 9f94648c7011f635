package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	r := Rule{
		Name:        "orders_customer_id_null_check",
		Description: "flags orders with null customer ids",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "all matches everything",
			filter: Filter{All: true},
			want:   true,
		},
		{
			name:   "name substring",
			filter: Filter{Name: "customer_id"},
			want:   true,
		},
		{
			name:   "name substring case-insensitive",
			filter: Filter{Name: "ORDERS"},
			want:   true,
		},
		{
			name:   "name substring miss",
			filter: Filter{Name: "payments"},
			want:   false,
		},
		{
			name:   "keyword matches description",
			filter: Filter{Keyword: "null customer"},
			want:   true,
		},
		{
			name:   "keyword matches name",
			filter: Filter{Keyword: "null_check"},
			want:   true,
		},
		{
			name:   "keyword miss",
			filter: Filter{Keyword: "uniqueness"},
			want:   false,
		},
		{
			name:   "zero filter matches nothing",
			filter: Filter{},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(r))
		})
	}
}

func TestFilter_Empty(t *testing.T) {
	assert.True(t, Filter{}.Empty())
	assert.False(t, Filter{All: true}.Empty())
	assert.False(t, Filter{Name: "x"}.Empty())
	assert.False(t, Filter{Keyword: "x"}.Empty())
}
