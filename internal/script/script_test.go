package script

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/catalog"
	"sticker-composer/internal/gesture"
	"sticker-composer/internal/overlay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneRecorder(scenes *[]capture.Scene) capture.Capturer {
	return capture.CapturerFunc(func(ctx context.Context, src capture.Source) (capture.Result, error) {
		sc, err := src.Scene()
		if err != nil {
			return capture.Result{}, err
		}
		*scenes = append(*scenes, sc)
		return capture.Result{URI: "file:///tmp/x.jpg", Width: 10, Height: 10}, nil
	})
}

func TestRunReplaysSession(t *testing.T) {
	var scenes []capture.Scene
	s := overlay.New(overlay.Options{}, sceneRecorder(&scenes))
	defer s.Close()

	sc := Script{
		BaseImage: "photo.jpg",
		Steps: []Step{
			{Action: "select", Sticker: "heart"},
			{Action: "gesture", Kind: "pan", X: 5, Y: 5},
			{Action: "gesture", Kind: "pan", X: 10, Y: 20},
			{Action: "gesture", Kind: "pan", Phase: "end"},
			{Action: "gesture", Kind: "pinch", Scale: 5},
			{Action: "gesture", Kind: "pinch", Phase: "end"},
			{Action: "gesture", Kind: "rotate", RotationDeg: 90},
			{Action: "gesture", Kind: "rotate", Phase: "end"},
			{Action: "capture"},
			{Action: "select", Sticker: "kiss"},
			{Action: "capture"},
			{Action: "reset"},
		},
	}

	results, err := Run(context.Background(), s, sc, catalog.Defaults())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, scenes, 2)

	first := scenes[0]
	assert.Equal(t, "photo.jpg", first.BaseImage)
	assert.Equal(t, "heart", first.Sticker)
	assert.Equal(t, 10.0, first.Placement.TranslateX)
	assert.Equal(t, 20.0, first.Placement.TranslateY)
	assert.Equal(t, 3.0, first.Placement.Scale)
	assert.InDelta(t, math.Pi/2, first.Placement.Rotation, 1e-12)

	assert.Equal(t, "kiss", scenes[1].Sticker)
	assert.Equal(t, first.Placement, scenes[1].Placement)

	assert.Equal(t, overlay.StateEmpty, s.State())
}

func TestRunStepErrors(t *testing.T) {
	cases := map[string]struct {
		step Step
		want error
	}{
		"unknown action":  {Step{Action: "undo"}, ErrUnknownAction},
		"unknown kind":    {Step{Action: "gesture", Kind: "swipe"}, gesture.ErrUnknownKind},
		"unknown phase":   {Step{Action: "gesture", Kind: "pan", Phase: "hover"}, gesture.ErrUnknownPhase},
		"unknown sticker": {Step{Action: "select", Sticker: "unicorn"}, catalog.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var scenes []capture.Scene
			s := overlay.New(overlay.Options{}, sceneRecorder(&scenes))
			defer s.Close()

			sc := Script{Steps: []Step{{Action: "select", Sticker: "heart"}, tc.step}}
			_, err := Run(context.Background(), s, sc, catalog.Defaults())
			assert.ErrorIs(t, err, tc.want)

			var se *StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 1, se.Index)
		})
	}
}

func TestRunReturnsCapturesBeforeFailure(t *testing.T) {
	calls := 0
	c := capture.CapturerFunc(func(ctx context.Context, src capture.Source) (capture.Result, error) {
		calls++
		if calls == 2 {
			return capture.Result{}, capture.ErrUnavailable
		}
		return capture.Result{URI: "file:///a.jpg", Width: 1, Height: 1}, nil
	})
	s := overlay.New(overlay.Options{BaseImage: "b.jpg"}, c)
	defer s.Close()

	results, err := Run(context.Background(), s, Script{Steps: []Step{
		{Action: "capture"}, {Action: "capture"}, {Action: "capture"},
	}}, nil)
	assert.ErrorIs(t, err, capture.ErrUnavailable)
	assert.Len(t, results, 1)
	assert.Equal(t, 2, calls)
}

func TestRunPassesNamesWithoutCatalog(t *testing.T) {
	var scenes []capture.Scene
	s := overlay.New(overlay.Options{}, sceneRecorder(&scenes))
	defer s.Close()

	_, err := Run(context.Background(), s, Script{Steps: []Step{
		{Action: "select", Sticker: "/abs/custom.png"},
		{Action: "capture"},
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/abs/custom.png", scenes[0].Sticker)
}

func TestRunHonoursCancellation(t *testing.T) {
	s := overlay.New(overlay.Options{}, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, s, Script{Steps: []Step{{Action: "reset"}}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepEventDefaults(t *testing.T) {
	ev, err := Step{Kind: "pinch"}.Event()
	require.NoError(t, err)
	assert.Equal(t, gesture.PhaseUpdate, ev.Phase)
	assert.Equal(t, 1.0, ev.Scale)

	ev, err = Step{Kind: "rotate", Rotation: 0.5, RotationDeg: 180}.Event()
	require.NoError(t, err)
	assert.InDelta(t, 0.5+math.Pi, ev.Rotation, 1e-12)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"name":"second","steps":[{"action":"reset"}]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"base_image":"p.jpg","steps":[]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0644))

	scripts, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a", scripts[0].Name)
	assert.Equal(t, "p.jpg", scripts[0].BaseImage)
	assert.Equal(t, "second", scripts[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.json"), []byte(`[`), 0644))
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, "parse")
}

func TestLoadRejectsInvalidSteps(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"typo.json":     `{"steps":[{"action":"gesture","kind":"pinch","scael":2}]}`,
		"noaction.json": `{"steps":[{"kind":"pan"}]}`,
		"negative.json": `{"steps":[{"action":"gesture","kind":"pinch","scale":-1}]}`,
		"badtype.json":  `{"steps":[{"action":"gesture","kind":"pan","x":"left"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.ErrorContains(t, err, "validate")
		})
	}
}
