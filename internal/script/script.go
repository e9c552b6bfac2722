// Package script replays recorded editing sessions: sticker picks, gesture
// events, captures and resets, in the order a user produced them.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/catalog"
	"sticker-composer/internal/gesture"
	"sticker-composer/internal/mathutil"
	"sticker-composer/internal/overlay"
)

var ErrUnknownAction = errors.New("script: unknown action")

// Actions.
const (
	ActionSelect  = "select"
	ActionGesture = "gesture"
	ActionCapture = "capture"
	ActionReset   = "reset"
)

// Script is one recorded editing session. BaseImage is handed to the
// session as written; callers resolve relative paths (batch does so under
// its BaseDir).
type Script struct {
	Name      string `json:"name"`
	BaseImage string `json:"base_image"`
	Steps     []Step `json:"steps"`
}

// Step is one user action. Gesture payloads are cumulative since the
// gesture began; Rotation is in radians, RotationDeg in degrees and both
// add up when set.
type Step struct {
	Action      string  `json:"action"`
	Sticker     string  `json:"sticker,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	Phase       string  `json:"phase,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
	Rotation    float64 `json:"rotation,omitempty"`
	RotationDeg float64 `json:"rotation_deg,omitempty"`
}

// StepError reports which step failed.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("script: step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Event converts a gesture step to a recognizer event. An update with no
// scale for a pinch means ratio 1.
func (st Step) Event() (gesture.Event, error) {
	kind, err := gesture.ParseKind(st.Kind)
	if err != nil {
		return gesture.Event{}, err
	}
	phase := gesture.PhaseUpdate
	if st.Phase != "" {
		if phase, err = gesture.ParsePhase(st.Phase); err != nil {
			return gesture.Event{}, err
		}
	}
	ev := gesture.Event{
		Kind:        kind,
		Phase:       phase,
		Translation: mathutil.Vec2{st.X, st.Y},
		Scale:       st.Scale,
		Rotation:    st.Rotation + mathutil.Deg2Rad(st.RotationDeg),
	}
	if kind == gesture.KindPinch && ev.Scale == 0 {
		ev.Scale = 1
	}
	return ev, nil
}

// Load reads and validates a script file. A script without a name takes
// the file stem.
func Load(path string) (Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("script: read %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Script{}, fmt.Errorf("script: parse %s: %w", path, err)
	}
	if err := validate(doc); err != nil {
		return Script{}, fmt.Errorf("script: validate %s: %w", path, err)
	}
	var sc Script
	if err := json.Unmarshal(raw, &sc); err != nil {
		return Script{}, fmt.Errorf("script: parse %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// LoadDir loads every *.json script in dir, sorted by file name.
func LoadDir(dir string) ([]Script, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("script: glob %s: %w", dir, err)
	}
	sort.Strings(paths)

	scripts := make([]Script, 0, len(paths))
	for _, p := range paths {
		sc, err := Load(p)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, sc)
	}
	return scripts, nil
}

// Run drives s through every step of sc and returns the captures it
// produced. Sticker names are looked up in stickers; an empty catalog
// passes names through as image references. Run stops at the first
// failing step and returns the captures made before it.
func Run(ctx context.Context, s *overlay.Session, sc Script, stickers []catalog.Sticker) ([]capture.Result, error) {
	if sc.BaseImage != "" {
		s.SetBaseImage(sc.BaseImage)
	}

	var results []capture.Result
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, &StepError{Index: i, Action: st.Action, Err: err}
		}

		switch strings.ToLower(st.Action) {
		case ActionSelect:
			ref := st.Sticker
			if len(stickers) > 0 {
				found, err := catalog.Lookup(stickers, st.Sticker)
				if err != nil {
					return results, &StepError{Index: i, Action: st.Action, Err: err}
				}
				ref = found.Image
			}
			s.Select(ref)

		case ActionGesture:
			ev, err := st.Event()
			if err == nil {
				err = s.HandleGesture(ev)
			}
			if err != nil {
				return results, &StepError{Index: i, Action: st.Action, Err: err}
			}

		case ActionCapture:
			res, err := s.RequestCapture(ctx)
			if err != nil {
				return results, &StepError{Index: i, Action: st.Action, Err: err}
			}
			results = append(results, res)

		case ActionReset:
			s.Reset()

		default:
			return results, &StepError{Index: i, Action: st.Action, Err: fmt.Errorf("%w: %q", ErrUnknownAction, st.Action)}
		}
	}
	return results, nil
}
