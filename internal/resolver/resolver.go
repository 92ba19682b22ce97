// Package resolver turns share links from supported platforms into direct,
// watermark-free media URLs via an external resolver API, downloads the media
// to local temporary storage, and evicts stale downloads.
package resolver

import (
	"context"
	"errors"
	"time"
)

// ErrNoMediaURL is returned when the resolver API answers without a usable
// media URL for the share link.
var ErrNoMediaURL = errors.New("cannot find media URL")

// Clip is the metadata the resolver API returns for a share link.
type Clip struct {
	MediaURL string `json:"video_url"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Platform string `json:"platform"`
}

// Acquirer resolves a share link to direct media and fetches it locally.
type Acquirer interface {
	// Resolve looks up the direct media URL and metadata for a share link.
	Resolve(ctx context.Context, shareURL string) (*Clip, error)
	// Download streams the media to the download directory and returns the
	// local file path.
	Download(ctx context.Context, mediaURL string) (string, error)
}

// TempCleaner evicts stale downloaded media.
type TempCleaner interface {
	// CleanupOld removes downloaded files older than maxAge and returns how
	// many were deleted.
	CleanupOld(maxAge time.Duration) (int, error)
}
