package structs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		Name   string
		Given  *Query
		Expect *Query
	}{
		{
			Name:   "SetsDefaultLimit",
			Given:  &Query{},
			Expect: &Query{Limit: queryLimitDefault, Sort: SortIDDesc},
		},
		{
			Name:   "SetsMaxLimit",
			Given:  &Query{Limit: queryLimitMax + 1},
			Expect: &Query{Limit: queryLimitMax, Sort: SortIDDesc},
		},
		{
			Name:   "SanitizesOffset",
			Given:  &Query{Limit: 1, Offset: -1},
			Expect: &Query{Limit: 1, Offset: 0, Sort: SortIDDesc},
		},
		{
			Name:   "KeepsCreateTimeSort",
			Given:  &Query{Limit: 1, Sort: SortCreateTimeDesc},
			Expect: &Query{Limit: 1, Sort: SortCreateTimeDesc},
		},
		{
			Name:   "UnknownSort",
			Given:  &Query{Limit: 1, Sort: "bogus"},
			Expect: &Query{Limit: 1, Sort: SortIDDesc},
		},
		{
			Name:   "ZeroNames",
			Given:  &Query{Limit: 1, JobNames: []string{}},
			Expect: &Query{Limit: 1, Sort: SortIDDesc},
		},
		{
			Name:   "ZeroInstances",
			Given:  &Query{Limit: 1, InstanceIDs: []int64{}},
			Expect: &Query{Limit: 1, Sort: SortIDDesc},
		},
		{
			Name:   "ZeroExecutions",
			Given:  &Query{Limit: 1, ExecutionIDs: []int64{}},
			Expect: &Query{Limit: 1, Sort: SortIDDesc},
		},
		{
			Name:   "ZeroStatuses",
			Given:  &Query{Limit: 1, Statuses: []Status{}},
			Expect: &Query{Limit: 1, Sort: SortIDDesc},
		},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			c.Given.Sanitize()
			assert.Equal(t, c.Expect, c.Given)
		})
	}
}
