package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatusKind(t *testing.T) {
	cases := map[string]struct {
		want StatusKind
		ok   bool
	}{
		"pending":       {StatusPending, true},
		" In_Progress ": {StatusInProgress, true},
		"COMPLETED":     {StatusCompleted, true},
		"cancelled":     {StatusCancelled, true},
		"canceled":      {StatusPending, false},
		"":              {StatusPending, false},
		"in progress":   {StatusPending, false},
	}
	for in, tc := range cases {
		got, ok := ParseStatusKind(in)
		assert.Equal(t, tc.want, got, in)
		assert.Equal(t, tc.ok, ok, in)
	}
}

func TestTemplatesLookup(t *testing.T) {
	tpl := Templates{Pending: "p", InProgress: "i", Completed: "c", Cancelled: "x"}
	for _, s := range StatusKinds {
		v, ok := tpl.Lookup(s)
		assert.True(t, ok)
		assert.NotEmpty(t, v)
	}
	_, ok := tpl.Lookup("refunded")
	assert.False(t, ok)
}
