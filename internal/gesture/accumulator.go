package gesture

import "sticker-composer/internal/mathutil"

// Accumulator holds the settled value of one gesture dimension plus the
// delta reported by the session in progress.
//
// Additive accumulators (pan axes, rotation) start at 0 and fold with +.
// Multiplicative accumulators (pinch) start at 1 and fold with ×.
// Value type; the zero value is not usable, construct with NewAdditive or
// NewMultiplicative.
type Accumulator struct {
	committed float64
	live      float64
	neutral   float64
	mult      bool
	active    bool
}

// NewAdditive returns an accumulator whose neutral value is 0.
func NewAdditive() Accumulator {
	return Accumulator{}
}

// NewMultiplicative returns an accumulator whose neutral value is 1.
func NewMultiplicative() Accumulator {
	return Accumulator{committed: 1, live: 1, neutral: 1, mult: true}
}

// Value returns committed combined with the live delta.
func (a *Accumulator) Value() float64 {
	if a.mult {
		return a.committed * a.live
	}
	return a.committed + a.live
}

// Committed returns the total folded in by completed sessions.
func (a *Accumulator) Committed() float64 { return a.committed }

// Live returns the delta of the active session, or the neutral value when idle.
func (a *Accumulator) Live() float64 { return a.live }

// Active reports whether a session is in progress.
func (a *Accumulator) Active() bool { return a.active }

// Begin opens a session at the neutral delta.
func (a *Accumulator) Begin() {
	a.live = a.neutral
	a.active = true
}

// Update sets the live delta to v, the recognizer's value since session start.
func (a *Accumulator) Update(v float64) {
	a.live = v
	a.active = true
}

// Commit folds the live delta into committed and returns to idle.
// Commit on an idle accumulator has no effect and returns false.
func (a *Accumulator) Commit() bool {
	if !a.active {
		return false
	}
	if a.mult {
		a.committed *= a.live
	} else {
		a.committed += a.live
	}
	a.live = a.neutral
	a.active = false
	return true
}

// Reset discards everything and returns to the neutral value.
func (a *Accumulator) Reset() {
	a.committed = a.neutral
	a.live = a.neutral
	a.active = false
}

// PanAccumulator is a two-axis additive accumulator for translation.
type PanAccumulator struct {
	X, Y Accumulator
}

// Value returns the accumulated translation.
func (p *PanAccumulator) Value() mathutil.Vec2 {
	return mathutil.Vec2{p.X.Value(), p.Y.Value()}
}

// Committed returns the translation settled by completed sessions.
func (p *PanAccumulator) Committed() mathutil.Vec2 {
	return mathutil.Vec2{p.X.Committed(), p.Y.Committed()}
}

// Live returns the translation reported by the active session.
func (p *PanAccumulator) Live() mathutil.Vec2 {
	return mathutil.Vec2{p.X.Live(), p.Y.Live()}
}

func (p *PanAccumulator) Active() bool { return p.X.Active() || p.Y.Active() }

func (p *PanAccumulator) Begin() {
	p.X.Begin()
	p.Y.Begin()
}

func (p *PanAccumulator) Update(v mathutil.Vec2) {
	p.X.Update(v[0])
	p.Y.Update(v[1])
}

func (p *PanAccumulator) Commit() bool {
	cx := p.X.Commit()
	cy := p.Y.Commit()
	return cx || cy
}

func (p *PanAccumulator) Reset() {
	p.X.Reset()
	p.Y.Reset()
}
