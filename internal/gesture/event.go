package gesture

import (
	"errors"
	"fmt"
	"strings"

	"sticker-composer/internal/mathutil"
)

var (
	ErrUnknownKind  = errors.New("gesture: unknown kind")
	ErrUnknownPhase = errors.New("gesture: unknown phase")
)

// Kind identifies one of the three recognizer streams.
type Kind int

const (
	KindPan Kind = iota + 1
	KindPinch
	KindRotate
)

func (k Kind) String() string {
	switch k {
	case KindPan:
		return "pan"
	case KindPinch:
		return "pinch"
	case KindRotate:
		return "rotate"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts "pan", "drag", "pinch", "scale", "rotate" or "rotation".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pan", "drag":
		return KindPan, nil
	case "pinch", "scale":
		return KindPinch, nil
	case "rotate", "rotation":
		return KindRotate, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Phase is the lifecycle stage carried by an event.
type Phase int

const (
	PhaseBegin Phase = iota + 1
	PhaseUpdate
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhaseUpdate:
		return "update"
	case PhaseEnd:
		return "end"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase accepts "begin", "update", "end" and "active" (alias of update).
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "begin", "began":
		return PhaseBegin, nil
	case "update", "active", "change":
		return PhaseUpdate, nil
	case "end", "ended":
		return PhaseEnd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// Event is one recognizer callback. Only the payload field matching Kind is
// read: Translation for pan, Scale for pinch, Rotation (radians) for rotate.
// Payloads are cumulative since the session began, not per-callback increments.
type Event struct {
	Kind        Kind
	Phase       Phase
	Translation mathutil.Vec2
	Scale       float64
	Rotation    float64
}

// Pan builds a pan update event.
func Pan(x, y float64) Event {
	return Event{Kind: KindPan, Phase: PhaseUpdate, Translation: mathutil.Vec2{x, y}}
}

// Pinch builds a pinch update event.
func Pinch(ratio float64) Event {
	return Event{Kind: KindPinch, Phase: PhaseUpdate, Scale: ratio}
}

// Rotate builds a rotate update event.
func Rotate(rad float64) Event {
	return Event{Kind: KindRotate, Phase: PhaseUpdate, Rotation: rad}
}

// End builds the release event for kind.
func End(k Kind) Event {
	return Event{Kind: k, Phase: PhaseEnd}
}
