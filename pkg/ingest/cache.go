package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"graphling/pkg/graph"
)

// cacheSuffix is appended to a source path to name its cached extraction
// script. The cache keeps model output, so re-ingesting into a fresh or
// different store replays the script without new model calls.
const cacheSuffix = ".graphscript.json"

func cachePath(source string) string {
	return source + cacheSuffix
}

// loadCachedScript returns the cached script for a source, or false when
// there is none or it cannot be decoded.
func loadCachedScript(source string) (*graph.Script, bool) {
	data, err := os.ReadFile(cachePath(source))
	if err != nil {
		return nil, false
	}
	var script graph.Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, false
	}
	return &script, true
}

func saveCachedScript(source string, script *graph.Script) error {
	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	if err := os.WriteFile(cachePath(source), data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
