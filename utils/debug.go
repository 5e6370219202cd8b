package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// blockingMarkers are strings that show up on anti-bot and error pages
var blockingMarkers = []string{"blocked", "403", "cloudflare"}

// DetectBlocking returns the blocking markers found in html
func DetectBlocking(html string) []string {
	lower := strings.ToLower(html)
	var found []string
	for _, marker := range blockingMarkers {
		if strings.Contains(lower, marker) {
			found = append(found, marker)
		}
	}
	return found
}

// WriteDebugCapture writes the snapshot's HTML, and screenshot when present,
// into dir for offline inspection. It returns the written paths.
func WriteDebugCapture(dir string, snap *Snapshot, at time.Time) ([]string, error) {
	if snap == nil {
		return nil, fmt.Errorf("no snapshot to write")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("debug-%d", at.UnixMilli()))
	var paths []string

	htmlPath := base + ".html"
	if err := os.WriteFile(htmlPath, []byte(snap.HTML), 0o644); err != nil {
		return paths, fmt.Errorf("write debug html: %w", err)
	}
	paths = append(paths, htmlPath)

	if len(snap.Screenshot) > 0 {
		pngPath := base + ".png"
		if err := os.WriteFile(pngPath, snap.Screenshot, 0o644); err != nil {
			return paths, fmt.Errorf("write debug screenshot: %w", err)
		}
		paths = append(paths, pngPath)
	}
	return paths, nil
}
