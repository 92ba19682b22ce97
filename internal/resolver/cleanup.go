package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hieund/repostbot/internal/logger"
)

// CleanupOld removes downloaded media files older than maxAge from the
// download directory. Only *.mp4 files are considered; subdirectories and
// unrelated files are left alone.
func (c *Client) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.cfg.DownloadDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read download directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(c.cfg.DownloadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to remove stale media file",
				logger.Field{Key: "path", Value: path},
				logger.Field{Key: "error", Value: err})
			continue
		}
		removed++
	}

	return removed, nil
}
