package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"sticker-composer/internal/batch"
	"sticker-composer/internal/catalog"
	"sticker-composer/internal/config"
	"sticker-composer/internal/logger"
	"sticker-composer/internal/overlay"
	"sticker-composer/internal/script"
	"sticker-composer/internal/texture"
	"sticker-composer/internal/watch"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json, .toml, .yaml)")
	testN := flag.Int("test", 0, "Replay only first N scripts for testing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	dataDir := flag.String("data", "", "Path to base directory (default: current directory)")
	outputDir := flag.String("output", "", "Output directory (default: <data>/out)")
	format := flag.String("format", "", "Output format: jpeg, png or webp (default: jpeg)")
	quality := flag.Int("quality", 0, "JPEG quality 1-100 (default: 100)")
	verbose := flag.Bool("v", false, "Verbose logging")
	watchDir := flag.Bool("watch", false, "Keep running and replay scripts as they are written")

	flag.Parse()

	if *verbose {
		logger.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load config
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

	// CLI flags override config file and environment
	cfg.Resolve(config.Flags{
		BaseDir:   *dataDir,
		OutputDir: *outputDir,
		Format:    *format,
		Quality:   *quality,
		Workers:   *workers,
	})

	// Load sticker catalog
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

	// Load scripts
	scripts, err := script.LoadDir(cfg.ScriptDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scripts: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(scripts) {
		scripts = scripts[:*testN]
	}

	if len(scripts) == 0 && !*watchDir {
		fmt.Printf("No scripts in %s.\n", cfg.ScriptDir)
		os.Exit(0)
	}

	// Build texture index
	texIndex := texture.BuildIndex(cfg.StickerDir)
	texCache := texture.NewCache(texIndex)
	fmt.Printf("Textures: %d indexed\n", texIndex.Len())

	// Print summary
	mode := ""
	if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("Sticker composer → %s%s\n", cfg.OutputFormat, mode)
	fmt.Printf("Scripts: %d, Stickers: %d, Workers: %d\n", len(scripts), len(stickers), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		Resolver:     texCache,
		Stickers:     stickers,
		BaseImage:    cfg.BaseImage,
		BaseDir:      cfg.BaseDir,
		OutputDir:    cfg.OutputDir,
		Format:       cfg.OutputFormat,
		Quality:      cfg.Quality,
		CanvasWidth:  cfg.CanvasWidth,
		CanvasHeight: cfg.CanvasHeight,
		StickerSize:  cfg.StickerSize,
		Workers:      cfg.Workers,
		Editor: overlay.Options{
			PreviewImageSize: cfg.PreviewImageSize,
			Visible:          *cfg.Visible,
			TopStyle:         cfg.TopStyle,
			BottomStyle:      cfg.BottomStyle,
			ImageStyle:       cfg.ImageStyle,
		},
		Progress: os.Stdout,
	}

	results := batch.Run(ctx, batchCfg, scripts)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, captures := 0, 0
	var failed []batch.Result
	for _, r := range results {
		captures += len(r.Captures)
		if r.Success {
			success++
		} else {
			failed = append(failed, r)
		}
	}

	fmt.Printf("Replayed: %d/%d, Captures: %d\n", success, len(scripts), captures)

	if len(failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failed))
		limit := 20
		if len(failed) < limit {
			limit = len(failed)
		}
		for _, e := range failed[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if *watchDir {
		if err := watchScripts(ctx, batchCfg, cfg.ScriptDir, manifestPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}

// watchScripts replays every script written to dir until ctx is cancelled,
// rewriting the manifest after each run. A rewritten script replaces its
// earlier results.
func watchScripts(ctx context.Context, batchCfg batch.Config, dir, manifestPath string, results []batch.Result) error {
	w, err := watch.New(dir, ".json", 0)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	batchCfg.Progress = nil
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-w.Errors():
			logger.L().Warn("watch error", "err", err)

		case path := <-w.Events():
			sc, err := script.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERR %v\n", err)
				continue
			}

			r := batch.Run(ctx, batchCfg, []script.Script{sc})[0]
			results = replaceResult(results, r)
			if r.Success {
				fmt.Printf("OK  %s: %d capture(s)\n", r.Name, len(r.Captures))
			} else {
				fmt.Printf("ERR %s: %s\n", r.Name, r.Error)
			}

			if err := batch.WriteManifest(manifestPath, results); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
			}
		}
	}
}

func replaceResult(results []batch.Result, r batch.Result) []batch.Result {
	for i := range results {
		if results[i].Name == r.Name {
			results[i] = r
			return results
		}
	}
	return append(results, r)
}
