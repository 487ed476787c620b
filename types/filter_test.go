package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationSanitize(t *testing.T) {
	cases := []struct {
		name      string
		in        Pagination
		wantSkip  int
		wantLimit int
	}{
		{name: "defaults", in: Pagination{}, wantSkip: 0, wantLimit: 50},
		{name: "negative skip", in: Pagination{Skip: -10, Limit: 20}, wantSkip: 0, wantLimit: 20},
		{name: "limit capped", in: Pagination{Skip: 100, Limit: 500}, wantSkip: 100, wantLimit: MaximumLimit},
		{name: "valid untouched", in: Pagination{Skip: 50, Limit: 25}, wantSkip: 50, wantLimit: 25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.in.Sanitize()
			assert.Equal(t, c.wantSkip, c.in.Skip)
			assert.Equal(t, c.wantLimit, c.in.Limit)
		})
	}
}
