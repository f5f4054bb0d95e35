// Package fsutil holds path helpers shared by the CLI and the reload watcher.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
// Other forms such as "~alice/x" are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Resolve expands a leading ~ and makes path absolute. Empty stays empty.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	p, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

// PathExists reports whether path exists. Errors other than not-exist
// (permission denied, for one) count as existing.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
