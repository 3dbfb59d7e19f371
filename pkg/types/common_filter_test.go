package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommonFilter_Validate(t *testing.T) {
	cases := []struct {
		name    string
		filter  CommonFilter
		wantErr bool
	}{
		{"eq", CommonFilter{Field: "tier", Operator: CommonFilterOperatorEq, Values: []any{"pro"}}, false},
		{"eq without value", CommonFilter{Field: "tier", Operator: CommonFilterOperatorEq}, true},
		{"range", CommonFilter{Field: "timestamp", Operator: CommonFilterOperatorDateRange, Values: []any{"2024-01-01", "2024-02-01"}}, false},
		{"range with one bound", CommonFilter{Field: "timestamp", Operator: CommonFilterOperatorRange, Values: []any{1}}, true},
		{"in", CommonFilter{Field: "status", Operator: CommonFilterOperatorIn, Values: []any{"active", "grace_period"}}, false},
		{"in empty", CommonFilter{Field: "status", Operator: CommonFilterOperatorIn}, true},
		{"unknown operator", CommonFilter{Field: "tier", Operator: "like", Values: []any{"p%"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filter.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
