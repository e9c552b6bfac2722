// Package transform composes the pan, pinch and rotate accumulators into
// the affine placement of the sticker layer.
package transform

import (
	"math"

	"sticker-composer/internal/gesture"
	"sticker-composer/internal/mathutil"
)

// Scale bounds applied to every externally observed scale.
const (
	MinScale = 0.5
	MaxScale = 3.0
)

// Placement is the composed translation, rotation and scale of the sticker.
// Rotation is in radians and unbounded.
type Placement struct {
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Scale      float64 `json:"scale"`
	Rotation   float64 `json:"rotation"`
}

// Identity is the placement of a freshly placed sticker.
var Identity = Placement{Scale: 1}

// Matrix maps sticker-local coordinates (origin at the sticker's center) to
// canvas coordinates, with anchor as the canvas point the untranslated
// sticker center sits on. Scale and rotation pivot around the sticker center.
func (p Placement) Matrix(anchor mathutil.Vec2) mathutil.Mat3 {
	return mathutil.Chain(
		mathutil.Translate(anchor[0]+p.TranslateX, anchor[1]+p.TranslateY),
		mathutil.Rotate(p.Rotation),
		mathutil.Scale(p.Scale, p.Scale),
	)
}

// State aggregates the three gesture accumulators. It implements
// gesture.Target. Not safe for concurrent use; the owner serializes access.
type State struct {
	pan    gesture.PanAccumulator
	pinch  gesture.Accumulator
	rotate gesture.Accumulator

	placement Placement
	subs      []*Subscription
	nextID    uint64
}

// New returns a State at the identity placement.
func New() *State {
	s := &State{
		pan:       gesture.PanAccumulator{X: gesture.NewAdditive(), Y: gesture.NewAdditive()},
		pinch:     gesture.NewMultiplicative(),
		rotate:    gesture.NewAdditive(),
		placement: Identity,
	}
	return s
}

func (s *State) Pan() *gesture.PanAccumulator { return &s.pan }
func (s *State) Pinch() *gesture.Accumulator  { return &s.pinch }
func (s *State) Rotate() *gesture.Accumulator { return &s.rotate }

// Recompute rebuilds the placement from the accumulators and notifies
// subscribers synchronously.
func (s *State) Recompute() {
	t := s.pan.Value()
	s.placement = Placement{
		TranslateX: t[0],
		TranslateY: t[1],
		Scale:      ClampScale(s.pinch.Value()),
		Rotation:   s.rotate.Value(),
	}
	s.notify()
}

// Placement returns the last composed placement.
func (s *State) Placement() Placement {
	return s.placement
}

// RawScale returns the unclamped pinch accumulator value.
func (s *State) RawScale() float64 {
	return s.pinch.Value()
}

// Reset returns every accumulator to neutral and notifies subscribers.
func (s *State) Reset() {
	s.pan.Reset()
	s.pinch.Reset()
	s.rotate.Reset()
	s.Recompute()
}

// ClampScale limits a raw pinch value to [MinScale, MaxScale]. The
// accumulator itself stays unclamped so a gesture that overshoots a bound
// and reverses responds immediately. NaN reads as MinScale.
func ClampScale(raw float64) float64 {
	if math.IsNaN(raw) {
		return MinScale
	}
	return mathutil.Clamp(raw, MinScale, MaxScale)
}
