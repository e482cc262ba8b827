package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
)

// OutputWriter replaces the file_sd file atomically: the inventory is written
// to a temporary file in the same directory, given its final mode and renamed
// over the target.
type OutputWriter struct {
	path string
	mode os.FileMode
}

func NewOutputWriter(path string, mode os.FileMode) *OutputWriter {
	return &OutputWriter{path: path, mode: mode}
}

func (w *OutputWriter) Path() string {
	return w.path
}

func (w *OutputWriter) Write(hosts *inventory.HostList) error {
	data, err := json.MarshalIndent(hosts, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".prometheus-pve-sd-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file %s: %w", tmpName, err)
	}

	if err := tmp.Chmod(w.mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s to %s: %w", tmpName, w.path, err)
	}

	outputWritesTotal.Inc()

	return nil
}
