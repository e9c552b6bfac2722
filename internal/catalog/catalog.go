// Package catalog lists the stickers offered in the picker strip.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"sticker-composer/internal/postprocess"
)

var ErrNotFound = errors.New("catalog: sticker not found")

// Sticker pairs a picker thumbnail with the image placed on the canvas.
// Both are image references resolved by texture.Cache.
type Sticker struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Image     string `json:"image"`
}

// ThumbnailRef returns the thumbnail reference, falling back to the image.
func (s Sticker) ThumbnailRef() string {
	if s.Thumbnail != "" {
		return s.Thumbnail
	}
	return s.Image
}

var defaultNames = []string{
	"ghost", "heart", "heartEyes", "kiss", "party",
	"robot", "smile", "sunglasses", "thumbsup",
}

// Defaults returns the built-in stickers. Image references are stems, so
// they resolve against whatever sticker directory is indexed.
func Defaults() []Sticker {
	out := make([]Sticker, len(defaultNames))
	for i, n := range defaultNames {
		out[i] = Sticker{Name: n, Image: n}
	}
	return out
}

// Merge combines caller-supplied stickers with the defaults. A nil custom
// list yields only the defaults; otherwise custom comes first and the
// defaults are appended only when includeDefaults is set.
func Merge(custom []Sticker, includeDefaults bool) []Sticker {
	if custom == nil {
		return Defaults()
	}
	out := make([]Sticker, 0, len(custom)+len(defaultNames))
	out = append(out, custom...)
	if includeDefaults {
		out = append(out, Defaults()...)
	}
	return out
}

// Lookup finds a sticker by name, case-insensitively. The first match wins,
// so caller-supplied stickers shadow defaults of the same name.
func Lookup(list []Sticker, name string) (Sticker, error) {
	for _, s := range list {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Sticker{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// LoadManifest reads a JSON array of stickers. Entries without a name take
// the image reference as their name; entries without an image are dropped.
func LoadManifest(path string) ([]Sticker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var list []Sticker
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	out := make([]Sticker, 0, len(list))
	for _, s := range list {
		if s.Image == "" {
			continue
		}
		if s.Name == "" {
			s.Name = s.Image
		}
		out = append(out, s)
	}
	return out, nil
}

// Thumbnail fits img into a size×size preview.
func Thumbnail(img *image.NRGBA, size int) *image.NRGBA {
	return postprocess.FitSquare(img, size)
}
