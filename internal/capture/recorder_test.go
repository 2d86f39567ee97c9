package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// fakeMic delivers transcript to the callback when stopped.
func fakeMic(transcript string, stops *atomic.Int32) opener {
	return func(onText func(string)) (session, error) {
		return session{
			start: func() error { return nil },
			stop: func() {
				stops.Add(1)
				go onText(transcript)
			},
		}, nil
	}
}

func newTestRecorder(open opener, opts ...Option) *Recorder {
	r := NewRecorder("whisper-cli", "model.bin", logger.New(logger.LevelOff, nil), opts...)
	r.open = open
	return r
}

func TestRecorderStartStop(t *testing.T) {
	var stops atomic.Int32
	r := newTestRecorder(fakeMic("[BLANK_AUDIO] Why is the  sky blue?\n", &stops))

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Recording())

	text, err := r.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Why is the sky blue?", text)
	assert.False(t, r.Recording())
	assert.EqualValues(t, 1, stops.Load())

	_, err = r.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderMaxDurationClosesOnce(t *testing.T) {
	var stops atomic.Int32
	r := newTestRecorder(fakeMic("dinosaurs", &stops), WithMaxDuration(10*time.Millisecond))

	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return stops.Load() == 1 }, time.Second, time.Millisecond)

	text, err := r.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dinosaurs", text)
	assert.EqualValues(t, 1, stops.Load(), "the microphone is closed only once")
}

func TestRecorderDeviceFailure(t *testing.T) {
	r := newTestRecorder(func(func(string)) (session, error) {
		return session{start: func() error { return errors.New("no input device") }, stop: func() {}}, nil
	})
	err := r.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceUnavailable)
	assert.False(t, r.Recording())

	r = newTestRecorder(func(func(string)) (session, error) { return session{}, errors.New("exec: not found") })
	assert.ErrorIs(t, r.Start(context.Background()), domain.ErrDeviceUnavailable)
}

func TestRecorderCancelDropsRecording(t *testing.T) {
	var stops atomic.Int32
	r := newTestRecorder(fakeMic("never read", &stops))

	r.Cancel()
	assert.Zero(t, stops.Load())

	require.NoError(t, r.Start(context.Background()))
	r.Cancel()
	assert.False(t, r.Recording())
	assert.EqualValues(t, 1, stops.Load())

	_, err := r.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderResultTimeout(t *testing.T) {
	r := newTestRecorder(func(func(string)) (session, error) {
		return session{start: func() error { return nil }, stop: func() {}}, nil
	}, WithResultTimeout(20*time.Millisecond))

	require.NoError(t, r.Start(context.Background()))
	_, err := r.Stop(context.Background())
	assert.Error(t, err)
}

func TestCleanTranscription(t *testing.T) {
	cases := map[string]string{
		"  hello world  ":                                     "hello world",
		"[BLANK_AUDIO]":                                       "",
		"(keyboard clicking) what is lava":                    "what is lava",
		"[00:00:00.000 --> 00:00:04.000]  how do plants eat": "how do plants eat",
		"Thank you.":                                          "",
		"you":                                                 "",
		"why\nare\r\nleaves green [Music]":                    "why are leaves green",
		"(speaking Hindi) सूरज क्या है":                       "सूरज क्या है",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanTranscription(in), "input %q", in)
	}
}
