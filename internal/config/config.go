package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configurable paths and editor/render settings.
type Config struct {
	// Paths
	BaseDir     string `json:"base_dir" toml:"base_dir" yaml:"base_dir" env:"STICKER_BASE_DIR"`
	StickerDir  string `json:"sticker_dir" toml:"sticker_dir" yaml:"sticker_dir" env:"STICKER_DIR"`
	CatalogFile string `json:"catalog_file" toml:"catalog_file" yaml:"catalog_file" env:"STICKER_CATALOG"`
	ScriptDir   string `json:"script_dir" toml:"script_dir" yaml:"script_dir" env:"STICKER_SCRIPT_DIR"`
	OutputDir   string `json:"output_dir" toml:"output_dir" yaml:"output_dir" env:"STICKER_OUTPUT_DIR"`

	// Editor settings. Styles are passed through to the presentation layer.
	BaseImage              string            `json:"base_image" toml:"base_image" yaml:"base_image" env:"STICKER_BASE_IMAGE"`
	IncludeDefaultStickers *bool             `json:"include_default_stickers" toml:"include_default_stickers" yaml:"include_default_stickers" env:"STICKER_INCLUDE_DEFAULTS"`
	PreviewImageSize       int               `json:"preview_image_size" toml:"preview_image_size" yaml:"preview_image_size" env:"STICKER_PREVIEW_SIZE"`
	StickerSize            int               `json:"sticker_size" toml:"sticker_size" yaml:"sticker_size" env:"STICKER_SIZE"`
	Visible                *bool             `json:"visible" toml:"visible" yaml:"visible" env:"STICKER_VISIBLE"`
	TopStyle               map[string]string `json:"top_container_style" toml:"top_container_style" yaml:"top_container_style"`
	BottomStyle            map[string]string `json:"bottom_container_style" toml:"bottom_container_style" yaml:"bottom_container_style"`
	ImageStyle             map[string]string `json:"image_style" toml:"image_style" yaml:"image_style"`

	// Render settings
	CanvasWidth  int    `json:"canvas_width" toml:"canvas_width" yaml:"canvas_width" env:"STICKER_CANVAS_WIDTH"`
	CanvasHeight int    `json:"canvas_height" toml:"canvas_height" yaml:"canvas_height" env:"STICKER_CANVAS_HEIGHT"`
	OutputFormat string `json:"output_format" toml:"output_format" yaml:"output_format" env:"STICKER_FORMAT"`
	Quality      int    `json:"quality" toml:"quality" yaml:"quality" env:"STICKER_QUALITY"`
	Workers      int    `json:"workers" toml:"workers" yaml:"workers" env:"STICKER_WORKERS"`
}

// Defaults for render settings.
const (
	DefaultPreviewImageSize = 50
	DefaultStickerSize      = 150
	DefaultOutputFormat     = "jpeg"
	DefaultQuality          = 100
)

// Load reads a config file. The format follows the extension: .json,
// .toml, .yaml or .yml. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: unsupported format %q: %s", ext, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays STICKER_* environment variables. Unset variables leave
// the current values alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.BaseDir != "" {
		c.BaseDir = flags.BaseDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.OutputFormat = flags.Format
	}
	if flags.Quality > 0 {
		c.Quality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}

	// Resolve relative paths against base dir
	c.StickerDir = c.under(c.StickerDir, "stickers")
	c.ScriptDir = c.under(c.ScriptDir, "scripts")
	c.OutputDir = c.under(c.OutputDir, "out")
	if c.CatalogFile != "" {
		c.CatalogFile = c.under(c.CatalogFile, "")
	}
	if c.BaseImage != "" {
		c.BaseImage = c.under(c.BaseImage, "")
	}

	if c.IncludeDefaultStickers == nil {
		t := true
		c.IncludeDefaultStickers = &t
	}
	if c.Visible == nil {
		t := true
		c.Visible = &t
	}
	if c.PreviewImageSize <= 0 {
		c.PreviewImageSize = DefaultPreviewImageSize
	}
	if c.StickerSize <= 0 {
		c.StickerSize = DefaultStickerSize
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = DefaultQuality
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	BaseDir   string
	OutputDir string
	Format    string
	Quality   int
	Workers   int
}

func (c *Config) under(p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
