// Package capture defines the contract to the rasterization step that
// flattens a composed scene into one image, and a file-writing
// implementation of it.
package capture

import (
	"context"
	"errors"

	"sticker-composer/internal/transform"
)

// ErrUnavailable reports that no image could be produced, for example
// because the base image is missing or the output could not be written.
// The caller's placement is untouched and the capture may be retried.
var ErrUnavailable = errors.New("capture: unavailable")

// Result is a flattened image. Immutable once returned.
type Result struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Scene is the visual state sampled at rasterization time.
type Scene struct {
	BaseImage   string
	Sticker     string
	Visible     bool
	Placement   transform.Placement
	StickerSize int
}

// Source yields the scene to rasterize. Capturers call Scene at the moment
// they sample, so gestures arriving while a capture is pending are
// reflected (last writer wins).
type Source interface {
	Scene() (Scene, error)
}

// Capturer rasterizes a Source.
type Capturer interface {
	Capture(ctx context.Context, src Source) (Result, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context, src Source) (Result, error)

func (f CapturerFunc) Capture(ctx context.Context, src Source) (Result, error) {
	return f(ctx, src)
}
