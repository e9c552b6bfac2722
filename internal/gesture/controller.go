package gesture

import (
	"fmt"

	"sticker-composer/internal/logger"
)

// Target exposes the accumulators a Controller drives. Recompute is called
// after every event that touched an accumulator.
type Target interface {
	Pan() *PanAccumulator
	Pinch() *Accumulator
	Rotate() *Accumulator
	Recompute()
}

// Controller routes recognizer events into the matching accumulator and
// owns the commit-on-release rule: a session's effect is folded into the
// running total exactly once, when its end event arrives, so the next
// session of the same kind starts from the settled value.
type Controller struct {
	target Target
}

// NewController returns a controller driving t.
func NewController(t Target) *Controller {
	return &Controller{target: t}
}

// HandleEvent applies ev. It reports whether an accumulator changed.
// An end event with no prior update is a zero-effect commit and returns
// (false, nil).
func (c *Controller) HandleEvent(ev Event) (bool, error) {
	switch ev.Phase {
	case PhaseBegin, PhaseUpdate, PhaseEnd:
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownPhase, int(ev.Phase))
	}

	var changed bool
	switch ev.Kind {
	case KindPan:
		changed = applyPan(c.target.Pan(), ev)
	case KindPinch:
		changed = apply(c.target.Pinch(), ev.Phase, ev.Scale)
	case KindRotate:
		changed = apply(c.target.Rotate(), ev.Phase, ev.Rotation)
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownKind, int(ev.Kind))
	}

	if changed {
		c.target.Recompute()
	}
	if ev.Phase == PhaseEnd && changed {
		logger.L().Debug("gesture committed", "kind", ev.Kind.String())
	}
	return changed, nil
}

// Active reports whether a session of kind k is in progress.
func (c *Controller) Active(k Kind) bool {
	switch k {
	case KindPan:
		return c.target.Pan().Active()
	case KindPinch:
		return c.target.Pinch().Active()
	case KindRotate:
		return c.target.Rotate().Active()
	}
	return false
}

func apply(a *Accumulator, phase Phase, v float64) bool {
	switch phase {
	case PhaseBegin:
		a.Begin()
		return true
	case PhaseUpdate:
		a.Update(v)
		return true
	case PhaseEnd:
		return a.Commit()
	}
	return false
}

func applyPan(p *PanAccumulator, ev Event) bool {
	switch ev.Phase {
	case PhaseBegin:
		p.Begin()
		return true
	case PhaseUpdate:
		p.Update(ev.Translation)
		return true
	case PhaseEnd:
		return p.Commit()
	}
	return false
}
