package capture

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"sticker-composer/internal/logger"
	"sticker-composer/internal/postprocess"
	"sticker-composer/internal/raster"
	"sticker-composer/internal/texture"

	"github.com/HugoSmits86/nativewebp"
)

// Output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Config configures a Service.
type Config struct {
	Resolver  texture.Resolver
	OutputDir string
	Format    string // jpeg (default), png, webp
	Quality   int    // JPEG quality 1-100, default 100
	// CanvasWidth and CanvasHeight, when both set, resize the base image to
	// cover that canvas before composing.
	CanvasWidth  int
	CanvasHeight int
	// Prefix names output files <Prefix>-<n>.<ext>. Default "capture".
	Prefix string
}

// Service is a Capturer that composes the scene in software and writes the
// flattened image to OutputDir.
type Service struct {
	cfg Config
	seq atomic.Int64
}

// NewService returns a Service with defaults applied.
func NewService(cfg Config) *Service {
	cfg.Format = NormalizeFormat(cfg.Format)
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 100
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "capture"
	}
	return &Service{cfg: cfg}
}

// NormalizeFormat maps aliases ("jpg", "JPEG", "") to a Format constant.
// Unknown names fall back to JPEG.
func NormalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimPrefix(f, ".")) {
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	}
	return FormatJPEG
}

// Ext returns the file extension for the configured format.
func (s *Service) Ext() string {
	if s.cfg.Format == FormatJPEG {
		return ".jpg"
	}
	return "." + s.cfg.Format
}

// Capture samples src, composes and writes the result. Every failure wraps
// ErrUnavailable.
func (s *Service) Capture(ctx context.Context, src Source) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, unavailable("cancelled", err)
	}

	scene, err := src.Scene()
	if err != nil {
		return Result{}, unavailable("sample scene", err)
	}

	img, err := s.Render(scene)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, unavailable("cancelled", err)
	}

	n := s.seq.Add(1)
	path := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%s-%d%s", s.cfg.Prefix, n, s.Ext()))
	if err := s.write(path, img); err != nil {
		return Result{}, unavailable("write "+path, err)
	}

	b := img.Bounds()
	res := Result{URI: FileURI(path), Width: b.Dx(), Height: b.Dy()}
	logger.L().Info("capture written", "uri", res.URI, "width", res.Width, "height", res.Height)
	return res, nil
}

// Render composes scene into an image without writing it.
func (s *Service) Render(scene Scene) (*image.NRGBA, error) {
	if scene.BaseImage == "" {
		return nil, fmt.Errorf("%w: no base image", ErrUnavailable)
	}
	if s.cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: no image resolver", ErrUnavailable)
	}
	base := s.cfg.Resolver.Resolve(scene.BaseImage)
	if base == nil {
		return nil, fmt.Errorf("%w: base image %q not found", ErrUnavailable, scene.BaseImage)
	}
	if s.cfg.CanvasWidth > 0 && s.cfg.CanvasHeight > 0 {
		base = postprocess.Cover(base, s.cfg.CanvasWidth, s.cfg.CanvasHeight)
	}

	var layer *raster.Layer
	if scene.Visible && scene.Sticker != "" {
		sticker := s.cfg.Resolver.Resolve(scene.Sticker)
		if sticker == nil {
			return nil, fmt.Errorf("%w: sticker %q not found", ErrUnavailable, scene.Sticker)
		}
		layer = &raster.Layer{Image: sticker, Placement: scene.Placement, Size: scene.StickerSize}
	}

	return raster.Compose(base, layer), nil
}

func (s *Service) write(path string, img *image.NRGBA) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, s.cfg.Format, s.cfg.Quality); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch NormalizeFormat(format) {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("webp encode: %w", err)
		}
		return nil
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
}

// FileURI returns a file:// URI for path, made absolute when possible.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// PathFromURI is the inverse of FileURI.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("capture: not a file uri: %s", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, what, err)
}
