package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	testCases := []struct {
		from, to Status
		ok       bool
	}{
		{Pending, PointsResolved, true},
		{PointsResolved, Emitted, true},
		{Pending, SkippedMissingPoints, true},
		{PointsResolved, SkippedMissingPoints, true},
		{Pending, Emitted, false},
		{Emitted, Pending, false},
		{SkippedMissingPoints, PointsResolved, false},
		{Emitted, SkippedMissingPoints, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			err := Transition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.False(t, PointsResolved.Terminal())
	assert.True(t, Emitted.Terminal())
	assert.True(t, SkippedMissingPoints.Terminal())
}
