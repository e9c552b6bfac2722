package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/gesture"
	"sticker-composer/internal/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCapturer samples the scene immediately and returns a fixed result.
type recordingCapturer struct {
	scenes []capture.Scene
	err    error
}

func (r *recordingCapturer) Capture(ctx context.Context, src capture.Source) (capture.Result, error) {
	if r.err != nil {
		return capture.Result{}, r.err
	}
	sc, err := src.Scene()
	if err != nil {
		return capture.Result{}, err
	}
	r.scenes = append(r.scenes, sc)
	return capture.Result{URI: "file:///tmp/capture.jpg", Width: 640, Height: 480}, nil
}

// gatedCapturer blocks until release is closed, then samples the scene.
type gatedCapturer struct {
	started chan struct{}
	release chan struct{}
	scene   capture.Scene
}

func newGated() *gatedCapturer {
	return &gatedCapturer{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedCapturer) Capture(ctx context.Context, src capture.Source) (capture.Result, error) {
	close(g.started)
	select {
	case <-g.release:
	case <-ctx.Done():
		return capture.Result{}, ctx.Err()
	}
	sc, err := src.Scene()
	if err != nil {
		return capture.Result{}, err
	}
	g.scene = sc
	return capture.Result{URI: "file:///tmp/late.jpg", Width: 1, Height: 1}, nil
}

type completions struct {
	calls []capture.Result
}

func (c *completions) fn(uri string, w, h int) {
	c.calls = append(c.calls, capture.Result{URI: uri, Width: w, Height: h})
}

func newSession(t *testing.T, c capture.Capturer) (*Session, *completions) {
	t.Helper()
	done := &completions{}
	s := New(Options{BaseImage: "photo.jpg", Completed: done.fn}, c)
	t.Cleanup(s.Close)
	return s, done
}

func handle(t *testing.T, s *Session, evs ...gesture.Event) {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, s.HandleGesture(ev))
	}
}

func TestNewSessionIsEmpty(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})

	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, "", s.Selected())
	assert.False(t, s.Visible())
	assert.Equal(t, transform.Identity, s.Placement())
	assert.Equal(t, DefaultStickerSize, s.Options().StickerSize)
	assert.Equal(t, "photo.jpg", s.BaseImage())
}

func TestGesturesIgnoredWithoutSticker(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})

	handle(t, s, gesture.Pan(10, 10), gesture.End(gesture.KindPan))
	assert.Equal(t, transform.Identity, s.Placement())
	assert.Equal(t, StateEmpty, s.State())
}

func TestSelectStartsPlacing(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})

	s.Select("ghost")
	assert.Equal(t, StatePlacing, s.State())
	assert.Equal(t, "ghost", s.Selected())
	assert.True(t, s.Visible())

	s.Select("")
	assert.Equal(t, "ghost", s.Selected())
}

func TestReselectKeepsPlacement(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})

	s.Select("A")
	handle(t, s, gesture.Pan(10, 20), gesture.End(gesture.KindPan))
	s.Select("B")

	p := s.Placement()
	assert.Equal(t, "B", s.Selected())
	assert.Equal(t, 10.0, p.TranslateX)
	assert.Equal(t, 20.0, p.TranslateY)
}

func TestPinchScenarios(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")

	handle(t, s, gesture.Pinch(5), gesture.End(gesture.KindPinch))
	assert.Equal(t, 3.0, s.Placement().Scale)
	assert.Equal(t, 5.0, s.RawScale())

	handle(t, s, gesture.Pinch(0.5))
	assert.True(t, s.GestureActive(gesture.KindPinch))
	assert.Equal(t, 2.5, s.Placement().Scale)
}

func TestOrphanEndLeavesPlacement(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")
	handle(t, s, gesture.Rotate(1), gesture.End(gesture.KindRotate))
	before := s.Placement()

	handle(t, s, gesture.End(gesture.KindPan), gesture.End(gesture.KindPinch), gesture.End(gesture.KindRotate))
	assert.Equal(t, before, s.Placement())
}

func TestInvalidGestureIsReported(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")

	err := s.HandleGesture(gesture.Event{Kind: gesture.KindPan, Phase: gesture.Phase(9)})
	assert.ErrorIs(t, err, gesture.ErrUnknownPhase)
}

func TestResetIsIdempotent(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")
	handle(t, s, gesture.Pan(3, 3), gesture.Pinch(2), gesture.End(gesture.KindPinch))
	_, err := s.RequestCapture(context.Background())
	require.NoError(t, err)

	s.Reset()
	first := snapshot(s)
	s.Reset()
	assert.Equal(t, first, snapshot(s))

	assert.Equal(t, StateEmpty, first.state)
	assert.Equal(t, "", first.selected)
	assert.False(t, first.visible)
	assert.Equal(t, transform.Identity, first.placement)
	assert.Equal(t, 1.0, first.raw)
	assert.False(t, first.hasResult)
	assert.False(t, s.GestureActive(gesture.KindPan))
}

type sessionSnapshot struct {
	state     State
	selected  string
	visible   bool
	placement transform.Placement
	raw       float64
	hasResult bool
}

func snapshot(s *Session) sessionSnapshot {
	_, ok := s.LastResult()
	return sessionSnapshot{s.State(), s.Selected(), s.Visible(), s.Placement(), s.RawScale(), ok}
}

func TestSetBaseImageResets(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")
	handle(t, s, gesture.Pan(3, 3))

	s.SetBaseImage("other.jpg")
	assert.Equal(t, "other.jpg", s.BaseImage())
	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, transform.Identity, s.Placement())
}

func TestCaptureSucceeds(t *testing.T) {
	rc := &recordingCapturer{}
	s, done := newSession(t, rc)
	s.Select("heart")
	handle(t, s, gesture.Pan(4, 5), gesture.End(gesture.KindPan))

	res, err := s.RequestCapture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 640, res.Width)
	assert.Equal(t, StateReady, s.State())

	require.Len(t, done.calls, 1)
	assert.Equal(t, res, done.calls[0])

	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, res, last)

	require.Len(t, rc.scenes, 1)
	sc := rc.scenes[0]
	assert.Equal(t, "photo.jpg", sc.BaseImage)
	assert.Equal(t, "heart", sc.Sticker)
	assert.True(t, sc.Visible)
	assert.Equal(t, 4.0, sc.Placement.TranslateX)
	assert.Equal(t, DefaultStickerSize, sc.StickerSize)
}

func TestReadyIsNotSticky(t *testing.T) {
	s, done := newSession(t, &recordingCapturer{})
	s.Select("heart")
	_, err := s.RequestCapture(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateReady, s.State())

	handle(t, s, gesture.Rotate(0.2))
	assert.Equal(t, StatePlacing, s.State())

	_, err = s.RequestCapture(context.Background())
	require.NoError(t, err)
	assert.Len(t, done.calls, 2)
}

func TestCaptureWithoutStickerFlattensBase(t *testing.T) {
	rc := &recordingCapturer{}
	s, _ := newSession(t, rc)

	_, err := s.RequestCapture(context.Background())
	require.NoError(t, err)
	require.Len(t, rc.scenes, 1)
	assert.False(t, rc.scenes[0].Visible)
	assert.Equal(t, StateReady, s.State())
}

func TestCaptureUnavailablePreservesPlacement(t *testing.T) {
	rc := &recordingCapturer{err: errors.New("view unavailable")}
	s, done := newSession(t, rc)
	s.Select("heart")
	handle(t, s, gesture.Pan(7, 8), gesture.End(gesture.KindPan))
	before := s.Placement()

	_, err := s.RequestCapture(context.Background())
	assert.ErrorIs(t, err, capture.ErrUnavailable)
	assert.Equal(t, StatePlacing, s.State())
	assert.Equal(t, before, s.Placement())
	assert.Empty(t, done.calls)

	rc.err = nil
	_, err = s.RequestCapture(context.Background())
	require.NoError(t, err)
	assert.Len(t, done.calls, 1)
}

func TestNoCapturer(t *testing.T) {
	s, _ := newSession(t, nil)
	_, err := s.RequestCapture(context.Background())
	assert.ErrorIs(t, err, capture.ErrUnavailable)
}

func TestCloseDuringCaptureSuppressesCompletion(t *testing.T) {
	g := newGated()
	s, done := newSession(t, g)
	s.Select("heart")

	errc := make(chan error, 1)
	go func() {
		_, err := s.RequestCapture(context.Background())
		errc <- err
	}()

	<-g.started
	s.Close()
	close(g.release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not return")
	}
	assert.Empty(t, done.calls)
	assert.Equal(t, StateClosed, s.State())
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestCloseCancelsCaptureContext(t *testing.T) {
	g := newGated()
	s, done := newSession(t, g)

	errc := make(chan error, 1)
	go func() {
		_, err := s.RequestCapture(context.Background())
		errc <- err
	}()

	<-g.started
	s.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("capture was not cancelled")
	}
	assert.Empty(t, done.calls)
}

func TestCaptureSamplesLatestPlacement(t *testing.T) {
	g := newGated()
	s, _ := newSession(t, g)
	s.Select("heart")

	type out struct {
		res capture.Result
		err error
	}
	outc := make(chan out, 1)
	go func() {
		res, err := s.RequestCapture(context.Background())
		outc <- out{res, err}
	}()

	<-g.started
	handle(t, s, gesture.Pan(30, 40))
	close(g.release)

	o := <-outc
	require.NoError(t, o.err)
	assert.Equal(t, 30.0, g.scene.Placement.TranslateX)
	assert.Equal(t, 40.0, g.scene.Placement.TranslateY)
}

func TestClosedSessionIgnoresEverything(t *testing.T) {
	s, done := newSession(t, &recordingCapturer{})
	s.Select("heart")
	handle(t, s, gesture.Pan(1, 1))
	s.Close()
	s.Close()

	s.Select("robot")
	assert.NoError(t, s.HandleGesture(gesture.Pan(50, 50)))
	s.Reset()
	s.SetBaseImage("x.jpg")

	assert.Equal(t, StateClosed, s.State())
	assert.True(t, s.Closed())
	assert.Equal(t, "heart", s.Selected())
	assert.Equal(t, 1.0, s.Placement().TranslateX)
	assert.Equal(t, "photo.jpg", s.BaseImage())

	_, err := s.RequestCapture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, done.calls)

	_, err = s.Scene()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPlacementNotifications(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	s.Select("heart")

	var got []transform.Placement
	sub := s.OnPlacementChanged(func(p transform.Placement) {
		got = append(got, p)
		// Reading back from the listener must not deadlock.
		_ = s.Placement()
	})

	handle(t, s, gesture.Pan(2, 0), gesture.Pan(4, 0), gesture.End(gesture.KindPan))
	require.Len(t, got, 3)
	assert.Equal(t, 4.0, got[2].TranslateX)

	s.Reset()
	require.Len(t, got, 4)
	assert.Equal(t, transform.Identity, got[3])

	sub.Release()
	s.Select("heart")
	handle(t, s, gesture.Pan(1, 1))
	assert.Len(t, got, 4)
}

func TestCloseReleasesSubscriptions(t *testing.T) {
	s, _ := newSession(t, &recordingCapturer{})
	calls := 0
	s.OnPlacementChanged(func(transform.Placement) { calls++ })
	s.OnPlacementChanged(func(transform.Placement) { calls++ })
	require.Equal(t, 2, s.transform.Listeners())

	s.Close()
	assert.Equal(t, 0, s.transform.Listeners())

	late := s.OnPlacementChanged(func(transform.Placement) { calls++ })
	late.Release()
	assert.Equal(t, 0, s.transform.Listeners())
	assert.Equal(t, 0, calls)
}

func TestCloseAfterCaptureReturnsSuppressesCompletion(t *testing.T) {
	s, done := newSession(t, &recordingCapturer{})
	s.Select("heart")

	testHookBeforeCompleted = func(s *Session) { s.Close() }
	defer func() { testHookBeforeCompleted = nil }()

	_, err := s.RequestCapture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, done.calls)
	_, ok := s.LastResult()
	assert.False(t, ok)
}
