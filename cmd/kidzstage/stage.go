package main

import (
	"context"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/config"
	"github.com/hammamikhairi/kidzstage/internal/display"
	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/gesture"
	"github.com/hammamikhairi/kidzstage/internal/logger"
	"github.com/hammamikhairi/kidzstage/internal/preset"
	"github.com/hammamikhairi/kidzstage/internal/session"
)

// stageControl routes gesture samples to the stage framing, the preset
// video and the zoom level, one debouncer each, and lets keys override
// them.
type stageControl struct {
	ui         *display.UI
	log        *logger.Logger
	actions    []gesture.Action
	debouncers []*gesture.Debouncer
	poller     *gesture.Poller
	stream     *gesture.Stream
}

func newStageControl(cfg *config.Config, classifier domain.GestureClassifier, ui *display.UI, overlay *preset.Overlay, notifier domain.Notifier, log *logger.Logger) *stageControl {
	glog := log.With("gesture")
	sc := &stageControl{ui: ui, log: glog}

	targets := []struct {
		name   string
		action gesture.Action
	}{
		{"stage", ui},
		{"video", overlay},
		{"zoom", gesture.NewZoomLevel(ui.SetZoom)},
	}
	fan := gesture.NewFanout()
	for _, t := range targets {
		d := gesture.NewDebouncer(t.action, glog,
			gesture.WithName(t.name),
			gesture.WithThrottle(cfg.Gesture.Throttle),
		)
		sc.actions = append(sc.actions, t.action)
		sc.debouncers = append(sc.debouncers, d)
		fan.Add(d)
	}

	switch cfg.Gesture.Source {
	case config.SourcePoll:
		frames := gesture.NewFileFrames(cfg.Gesture.FramePath, cfg.Gesture.FrameMaxAge)
		sc.poller = gesture.NewPoller(frames, classifier, fan, glog,
			gesture.WithPollInterval(cfg.Gesture.PollInterval),
			gesture.WithDeviceFailureThreshold(cfg.Gesture.DeviceFailures),
			gesture.WithDeviceErrorHandler(func(err error) {
				glog.Warn("camera unavailable: %v", err)
				_ = notifier.Notify(context.Background(), session.LineCameraUnavailable())
			}),
		)
	case config.SourceStream:
		sc.stream = gesture.NewStream(cfg.Gesture.StreamURL, fan, glog)
	}
	return sc
}

// set applies a mode chosen by a key and tells every debouncer, so the
// next gesture is compared against it.
func (sc *stageControl) set(mode domain.Mode) {
	for _, a := range sc.actions {
		a.Apply(mode)
	}
	for _, d := range sc.debouncers {
		d.Force(mode)
	}
}

// run drives the gesture source until ctx is done, mirroring its last
// error onto the status bar.
func (sc *stageControl) run(ctx context.Context) error {
	switch {
	case sc.poller != nil:
		sc.poller.Start(ctx)
		defer sc.poller.Stop()
	case sc.stream != nil:
		sc.stream.Start(ctx)
		defer sc.stream.Stop()
	default:
		sc.log.Info("gestures off")
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			sc.ui.SetCameraError(sc.lastError())
		}
	}
}

func (sc *stageControl) lastError() string {
	if sc.poller != nil {
		return sc.poller.LastError()
	}
	if sc.stream != nil && !sc.stream.IsConnected() {
		return sc.stream.LastError()
	}
	return ""
}
