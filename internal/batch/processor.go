package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sticker-composer/internal/capture"
	"sticker-composer/internal/catalog"
	"sticker-composer/internal/logger"
	"sticker-composer/internal/overlay"
	"sticker-composer/internal/script"
	"sticker-composer/internal/texture"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Resolver  texture.Resolver
	Stickers  []catalog.Sticker
	BaseImage string // used by scripts that do not name their own

	// BaseDir resolves relative script base images, as config does for
	// its own base_image.
	BaseDir string

	OutputDir    string
	Format       string
	Quality      int
	CanvasWidth  int
	CanvasHeight int
	StickerSize  int
	Workers      int

	// Editor is copied into every script's session. BaseImage and
	// StickerSize above win when set.
	Editor overlay.Options

	// Progress receives a line every two seconds while running. Nil disables it.
	Progress io.Writer
}

// Result holds the outcome of replaying one script.
type Result struct {
	Name     string
	Dir      string // output subdirectory, unique within one Run
	Captures []capture.Result
	Success  bool
	Error    string
}

// Run replays all scripts using a worker pool. Each script gets its own
// session and writes into its own subdirectory of OutputDir, named after
// the script. Names that collide get a -2, -3, ... suffix.
func Run(ctx context.Context, cfg Config, scripts []script.Script) []Result {
	total := len(scripts)
	results := make([]Result, total)
	dirs := dirNames(scripts)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						rate := float64(p) / elapsed
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f scripts/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	// Worker pool
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processScript(ctx, cfg, scripts[idx], dirs[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range scripts {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func processScript(ctx context.Context, cfg Config, sc script.Script, dir string) Result {
	if sc.BaseImage != "" && cfg.BaseDir != "" && !filepath.IsAbs(sc.BaseImage) {
		sc.BaseImage = filepath.Join(cfg.BaseDir, sc.BaseImage)
	}

	svc := capture.NewService(capture.Config{
		Resolver:     cfg.Resolver,
		OutputDir:    filepath.Join(cfg.OutputDir, dir),
		Format:       cfg.Format,
		Quality:      cfg.Quality,
		CanvasWidth:  cfg.CanvasWidth,
		CanvasHeight: cfg.CanvasHeight,
		Prefix:       "capture",
	})

	opts := cfg.Editor
	if cfg.BaseImage != "" {
		opts.BaseImage = cfg.BaseImage
	}
	if cfg.StickerSize > 0 {
		opts.StickerSize = cfg.StickerSize
	}
	session := overlay.New(opts, svc)
	defer session.Close()

	captures, err := script.Run(ctx, session, sc, cfg.Stickers)
	if err != nil {
		logger.L().Warn("script failed", "script", sc.Name, "err", err)
		return Result{Name: sc.Name, Dir: dir, Captures: captures, Error: err.Error()}
	}
	return Result{Name: sc.Name, Dir: dir, Captures: captures, Success: true}
}

// dirNames assigns every script a distinct output directory. Comparison
// ignores case so the names stay distinct on case-insensitive filesystems.
func dirNames(scripts []script.Script) []string {
	used := make(map[string]bool, len(scripts))
	out := make([]string, len(scripts))
	for i, sc := range scripts {
		base := SafeName(sc.Name)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

// SafeName turns a script name into a single path element that stays
// below its parent directory.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	switch name {
	case "":
		return "script"
	case ".", "..":
		return strings.Repeat("_", len(name))
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
