// Package sink writes a run's records to disk.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName returns the output file name for a run over seasons:
// recruiting_class_<first>[-<last>]_<YYYYMMDD>.<ext>.
func FileName(seasons []int, now time.Time, ext string) string {
	span := "unknown"
	switch len(seasons) {
	case 0:
	case 1:
		span = fmt.Sprint(seasons[0])
	default:
		span = fmt.Sprintf("%d-%d", seasons[0], seasons[len(seasons)-1])
	}
	return fmt.Sprintf("recruiting_class_%s_%s.%s", span, now.Format("20060102"), ext)
}

// WriteFile writes text to dir/name, creating dir when needed, and returns
// the full path.
func WriteFile(dir, name, text string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return path, nil
}
