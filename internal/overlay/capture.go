package overlay

import (
	"context"
	"errors"
	"fmt"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/logger"
)

// Scene implements capture.Source. The capturer calls it when it samples,
// so the placement reflects gestures handled while the capture was pending.
func (s *Session) Scene() (capture.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return capture.Scene{}, ErrClosed
	}
	return capture.Scene{
		BaseImage:   s.base,
		Sticker:     s.selected,
		Visible:     s.visible,
		Placement:   s.transform.Placement(),
		StickerSize: s.opts.StickerSize,
	}, nil
}

// RequestCapture flattens the current scene. On success the session moves
// to StateReady and Options.Completed is called once with the result.
//
// A capturer failure returns an error matching capture.ErrUnavailable and
// leaves the session untouched so the caller can retry. If Close runs
// before the capturer returns, the result is dropped and ErrClosed is
// returned; Completed is not called.
func (s *Session) RequestCapture(ctx context.Context) (capture.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return capture.Result{}, ErrClosed
	}
	if s.capturer == nil {
		s.mu.Unlock()
		return capture.Result{}, fmt.Errorf("overlay: %w: no capturer", capture.ErrUnavailable)
	}
	c := s.capturer
	s.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	res, err := c.Capture(cctx, s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logger.L().Warn("capture result discarded after close")
		return capture.Result{}, ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		logger.L().Warn("capture failed", "err", err)
		if !errors.Is(err, capture.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrUnavailable, err)
		}
		return capture.Result{}, fmt.Errorf("overlay: %w", err)
	}
	s.last = &res
	s.setState(StateReady)
	completed := s.opts.Completed
	s.mu.Unlock()

	if completed == nil {
		return res, nil
	}
	if testHookBeforeCompleted != nil {
		testHookBeforeCompleted(s)
	}
	if s.Closed() {
		logger.L().Warn("capture result discarded after close")
		return capture.Result{}, ErrClosed
	}
	completed(res.URI, res.Width, res.Height)
	return res, nil
}

// testHookBeforeCompleted runs between releasing the lock and the final
// liveness check.
var testHookBeforeCompleted func(*Session)
