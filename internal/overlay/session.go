// Package overlay runs one sticker editing session: which sticker is
// placed, where it sits, and when the composed scene is flattened.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/gesture"
	"sticker-composer/internal/logger"
	"sticker-composer/internal/transform"
)

// ErrClosed is returned by RequestCapture when the session was torn down
// before the capture finished. The result, if any, has been discarded.
var ErrClosed = errors.New("overlay: session closed")

// DefaultStickerSize is the side in pixels of the box a sticker is fitted
// into before scaling.
const DefaultStickerSize = 150

// State is the session lifecycle stage.
type State int

const (
	StateClosed State = iota
	StateEmpty
	StatePlacing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateEmpty:
		return "empty"
	case StatePlacing:
		return "placing"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CompletedFunc receives each successful capture. It runs on the goroutine
// that called RequestCapture, outside the session lock, after a last check
// that the session is still open. A Close racing from another goroutine
// after that check does not stop a call already under way.
type CompletedFunc func(uri string, width, height int)

// Options are the editor settings. Only BaseImage and StickerSize reach the
// capture; the rest is carried for the presentation layer.
type Options struct {
	BaseImage        string
	StickerSize      int
	PreviewImageSize int
	Visible          bool
	TopStyle         map[string]string
	BottomStyle      map[string]string
	ImageStyle       map[string]string
	Completed        CompletedFunc
}

// Session owns the transform state of one editor. Gesture handling,
// selection and reset are expected on one goroutine; RequestCapture may
// block on the capturer while gestures keep arriving.
type Session struct {
	mu       sync.Mutex
	opts     Options
	capturer capture.Capturer

	state    State
	selected string
	visible  bool
	base     string
	last     *capture.Result

	transform *transform.State
	gestures  *gesture.Controller
	subs      []*transform.Subscription
	pending   []notification

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

type notification struct {
	fn func(transform.Placement)
	p  transform.Placement
}

// New opens an editor session in StateEmpty.
func New(opts Options, c capture.Capturer) *Session {
	if opts.StickerSize <= 0 {
		opts.StickerSize = DefaultStickerSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	ts := transform.New()
	return &Session{
		opts:      opts,
		capturer:  c,
		state:     StateEmpty,
		base:      opts.BaseImage,
		transform: ts,
		gestures:  gesture.NewController(ts),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Options returns the settings the session was opened with.
func (s *Session) Options() Options {
	return s.opts
}

// Select places ref on the canvas and makes the sticker layer visible.
// The current placement is kept, so re-selecting swaps the image in place.
func (s *Session) Select(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ref == "" {
		return
	}
	s.selected = ref
	s.visible = true
	s.setState(StatePlacing)
}

// HandleGesture routes ev to the gesture controller. Events are ignored
// until a sticker is selected and after Close. Accepting an event in
// StateReady returns the session to StatePlacing.
func (s *Session) HandleGesture(ev gesture.Event) error {
	s.mu.Lock()
	if s.closed || s.selected == "" {
		s.mu.Unlock()
		return nil
	}
	if _, err := s.gestures.HandleEvent(ev); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == StateReady {
		s.setState(StatePlacing)
	}
	s.mu.Unlock()

	s.flush()
	return nil
}

// Reset discards the composition and returns to StateEmpty. Calling it
// repeatedly has the same effect as calling it once.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	s.mu.Unlock()

	s.flush()
}

// SetBaseImage supplies a new base photo, which also discards the composition.
func (s *Session) SetBaseImage(ref string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.base = ref
	s.resetLocked()
	s.mu.Unlock()

	s.flush()
}

func (s *Session) resetLocked() {
	s.transform.Reset()
	s.selected = ""
	s.visible = false
	s.last = nil
	s.setState(StateEmpty)
}

// OnPlacementChanged registers fn to receive the placement after every
// recomputation. fn runs on the mutating goroutine after the session lock
// is released. The session releases the handle on Close; callers may
// release it earlier.
func (s *Session) OnPlacementChanged(fn func(transform.Placement)) *transform.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.transform.Subscribe(func(p transform.Placement) {
		s.pending = append(s.pending, notification{fn: fn, p: p})
	})
	if s.closed {
		sub.Release()
		return sub
	}
	s.subs = append(s.subs, sub)
	return sub
}

// flush delivers queued placement notifications unless the session has
// been torn down in the meantime.
func (s *Session) flush() {
	s.mu.Lock()
	if s.closed || len(s.pending) == 0 {
		s.pending = nil
		s.mu.Unlock()
		return
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, n := range pending {
		n.fn(n.p)
	}
}

// Close tears the session down. In-flight captures are cancelled and their
// results discarded; every later call is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for _, sub := range s.subs {
		sub.Release()
	}
	s.subs = nil
	s.pending = nil
	s.last = nil
	s.setState(StateClosed)
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	logger.L().Debug("overlay state", "from", s.state.String(), "to", next.String())
	s.state = next
}

// State returns the lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selected returns the placed sticker reference, or "" if none.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Visible reports whether the sticker layer renders.
func (s *Session) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// BaseImage returns the current base photo reference.
func (s *Session) BaseImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Placement returns the composed placement with scale clamped.
func (s *Session) Placement() transform.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.Placement()
}

// RawScale returns the unclamped pinch total.
func (s *Session) RawScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.RawScale()
}

// GestureActive reports whether a session of kind k is in progress.
func (s *Session) GestureActive(k gesture.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures.Active(k)
}

// LastResult returns the most recent successful capture since the last reset.
func (s *Session) LastResult() (capture.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return capture.Result{}, false
	}
	return *s.last, true
}
