package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/recognizer"
)

// cameraSource turns camera frames into recognizer frames.
//
// Pipeline logic:
//  1. Start in idle mode (capture.IdleFPS)
//  2. Read a frame and check it for change against the previous one
//  3. Run hand detection and keep the best hand
//  4. Change or a visible hand switches to active mode (capture.ActiveFPS)
//  5. After capture.IdleTimeout without either, switch back to idle mode
//
// Detection runs in idle mode too: a held letter is a still scene.
type cameraSource struct {
	camera   capture.Camera
	change   *capture.ChangeDetector
	detector detector.Detector
	throttle *capture.Throttle
	enabled  func() bool
	logger   logging.Logger

	start  time.Time
	next   time.Time
	lastTS int64
	now    func() time.Time
}

func newCameraSource(cam capture.Camera, change *capture.ChangeDetector, det detector.Detector,
	enabled func() bool, cfg Config, logger logging.Logger) *cameraSource {
	return &cameraSource{
		camera:   cam,
		change:   change,
		detector: det,
		throttle: capture.NewThrottle(cfg.IdleFPS, cfg.ActiveFPS, 0),
		enabled:  enabled,
		logger:   logger,
		lastTS:   -1,
		now:      time.Now,
	}
}

// Next implements recognizer.FrameSource. It paces reads at the throttle's
// frame rate and returns io.EOF when the camera runs out of frames.
// Timestamps are milliseconds since the first frame and strictly increase.
func (c *cameraSource) Next(ctx context.Context) (recognizer.Frame, error) {
	for {
		if err := c.wait(ctx); err != nil {
			return recognizer.Frame{}, err
		}
		now := c.now()
		c.next = now.Add(c.throttle.Interval())

		if !c.enabled() {
			continue
		}

		frame, err := c.camera.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			return recognizer.Frame{}, io.EOF
		}
		if errors.Is(err, capture.ErrCameraNotOpen) {
			return recognizer.Frame{}, err
		}
		if err != nil {
			c.logger.Warnw("error reading frame", "error", err)
			continue
		}

		changed, _ := c.change.Detect(frame)
		hands, err := c.detector.Detect(frame)
		frame.Close()
		if err != nil {
			c.logger.Warnw("error detecting hands", "error", err)
			continue
		}

		if c.throttle.Observe(changed || len(hands) > 0, now) {
			c.camera.SetFPS(c.throttle.FPS())
			c.next = now.Add(c.throttle.Interval())
			c.logger.Debugw("frame rate switched", "active", c.throttle.Active(), "fps", c.throttle.FPS())
		}

		return c.frame(now, hands), nil
	}
}

func (c *cameraSource) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := c.next.Sub(c.now())
	if c.next.IsZero() || d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *cameraSource) frame(now time.Time, hands []landmark.Hand) recognizer.Frame {
	if c.start.IsZero() {
		c.start = now
	}
	ts := now.Sub(c.start).Milliseconds()
	if ts <= c.lastTS {
		ts = c.lastTS + 1
	}
	c.lastTS = ts

	f := recognizer.Frame{Timestamp: ts}
	if len(hands) > 0 {
		f.Landmarks = append([]landmark.Point3D(nil), hands[0].Points[:]...)
	}
	return f
}
