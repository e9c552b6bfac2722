package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/catalog"
	"sticker-composer/internal/config"
	"sticker-composer/internal/texture"
)

func writeThumb(cache *texture.Cache, dir string, size int, s catalog.Sticker) (string, error) {
	ref := s.ThumbnailRef()
	img := cache.Resolve(ref)
	if img == nil {
		return "", fmt.Errorf("%s: cannot resolve %q", s.Name, ref)
	}

	dst := filepath.Join(dir, s.Name+".webp")
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if err := capture.Encode(f, catalog.Thumbnail(img, size), capture.FormatWebP, 0); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", dst, err)
	}
	return dst, f.Close()
}

func main() {
	configFile := flag.String("config", "", "Path to config file (.json, .toml, .yaml)")
	dataDir := flag.String("data", "", "Path to base directory (default: current directory)")
	outputDir := flag.String("output", "", "Output directory (default: <data>/out/thumbs)")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(config.Flags{BaseDir: *dataDir})

	dir := *outputDir
	if dir == "" {
		dir = filepath.Join(cfg.OutputDir, "thumbs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var custom []catalog.Sticker
	if cfg.CatalogFile != "" {
		var err error
		custom, err = catalog.LoadManifest(cfg.CatalogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
			os.Exit(1)
		}
	}
	stickers := catalog.Merge(custom, *cfg.IncludeDefaultStickers)
	cache := texture.NewCache(texture.BuildIndex(cfg.StickerDir))

	errors := 0
	for _, s := range stickers {
		dst, err := writeThumb(cache, dir, cfg.PreviewImageSize, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
			continue
		}
		fmt.Printf("OK  %s -> %s  (%dx%d)\n", s.Name, dst, cfg.PreviewImageSize, cfg.PreviewImageSize)
	}
	if errors > 0 {
		fmt.Printf("\nDone with %d error(s).\n", errors)
		os.Exit(1)
	}
	fmt.Println("\nDone. All thumbnails written.")
}
