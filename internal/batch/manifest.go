package batch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"sticker-composer/internal/capture"
)

// ManifestEntry represents one flattened image in the output manifest.
type ManifestEntry struct {
	Script string `json:"script"`
	Dir    string `json:"dir"`
	Index  int    `json:"index"`
	URI    string `json:"uri"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WriteManifest writes the manifest of all captures to path. Image paths
// are relative to the manifest's directory when possible.
func WriteManifest(path string, results []Result) error {
	dir := filepath.Dir(path)
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		for i, c := range r.Captures {
			img, err := capture.PathFromURI(c.URI)
			if err == nil {
				if rel, err := filepath.Rel(dir, img); err == nil {
					img = filepath.ToSlash(rel)
				}
			}
			entries = append(entries, ManifestEntry{
				Script: r.Name,
				Dir:    r.Dir,
				Index:  i,
				URI:    c.URI,
				Image:  img,
				Width:  c.Width,
				Height: c.Height,
			})
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
