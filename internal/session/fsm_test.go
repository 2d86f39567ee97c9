package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from domain.SessionState
		on   Event
		to   domain.SessionState
	}{
		{domain.StateIdle, EventListen, domain.StateListening},
		{domain.StateIdle, EventSubmit, domain.StateProcessing},
		{domain.StateListening, EventSubmit, domain.StateProcessing},
		{domain.StateListening, EventFail, domain.StateIdle},
		{domain.StateProcessing, EventAnswer, domain.StatePlaying},
		{domain.StateProcessing, EventEmpty, domain.StateIdle},
		{domain.StateProcessing, EventFail, domain.StateIdle},
		{domain.StatePlaying, EventFinish, domain.StateIdle},
		{domain.StateIdle, EventReplay, domain.StatePlaying},
		{domain.StatePlaying, EventReplay, domain.StatePlaying},
		{domain.StateStopped, EventSettle, domain.StateIdle},
		// new work wins over whatever is running
		{domain.StatePlaying, EventListen, domain.StateListening},
		{domain.StateProcessing, EventSubmit, domain.StateProcessing},
		{domain.StatePlaying, EventSubmit, domain.StateProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"/"+tc.on.String(), func(t *testing.T) {
			got, err := Transition(tc.from, tc.on)
			require.NoError(t, err)
			assert.Equal(t, tc.to, got)
		})
	}
}

func TestTransitionRejects(t *testing.T) {
	cases := []struct {
		from domain.SessionState
		on   Event
	}{
		{domain.StateIdle, EventAnswer},
		{domain.StateIdle, EventFinish},
		{domain.StateListening, EventReplay},
		{domain.StateProcessing, EventReplay},
		{domain.StateProcessing, EventFinish},
		{domain.StatePlaying, EventAnswer},
		{domain.StateStopped, EventFinish},
		{domain.StateIdle, EventSettle},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"/"+tc.on.String(), func(t *testing.T) {
			got, err := Transition(tc.from, tc.on)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, tc.from, got, "state is unchanged on error")
		})
	}
}

func TestStopReachableFromEveryState(t *testing.T) {
	for _, s := range []domain.SessionState{
		domain.StateIdle, domain.StateListening, domain.StateProcessing,
		domain.StatePlaying, domain.StateStopped,
	} {
		got, err := Transition(s, EventStop)
		require.NoError(t, err, s.String())
		assert.Equal(t, domain.StateStopped, got)

		idle, err := Transition(got, EventSettle)
		require.NoError(t, err)
		assert.Equal(t, domain.StateIdle, idle)
	}
}
