package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDDL(t *testing.T) {
	s := &Schema{
		Target: Target{ProjectID: "acme-analytics", DatasetID: "sales"},
		Tables: []Table{
			{
				Name: "orders",
				Columns: []Column{
					{Name: "order_id", Type: "INT64"},
					{Name: "customer_id", Type: "INT64"},
				},
				SampleRows: [][]string{{"1", "42"}},
			},
			{
				Name:    "customers",
				Columns: []Column{{Name: "id", Type: "INT64"}},
			},
		},
	}

	want := "CREATE TABLE `acme-analytics.sales.orders` (\n" +
		"  order_id INT64,\n" +
		"  customer_id INT64\n" +
		");\n" +
		"-- sample: 1, 42\n" +
		"\n" +
		"CREATE TABLE `acme-analytics.sales.customers` (\n" +
		"  id INT64\n" +
		");\n"
	assert.Equal(t, want, s.DDL())
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "p.d", Target{ProjectID: "p", DatasetID: "d"}.String())
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Category: CategorySemantic, Message: "Unrecognized name: custmer_id"}
	assert.Equal(t, "semantic error: Unrecognized name: custmer_id", err.Error())
}
