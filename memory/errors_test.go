package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient store error", Transient("commit", errors.New("blip")), true},
		{"permanent store error", Permanent("commit", errors.New("rejected")), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped transient", fmt.Errorf("outer: %w", Transient("search", errors.New("x"))), true},
		{"unclassified", errors.New("mystery"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestStoreErrorUnwraps(t *testing.T) {
	inner := errors.New("root cause")
	err := Transient("search", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "search")
	assert.Contains(t, err.Error(), "transient")
}
