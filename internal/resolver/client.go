package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hieund/repostbot/internal/logger"
)

// Config holds resolver client settings.
type Config struct {
	APIURL          string
	APIKey          string
	DownloadDir     string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
}

// Client implements Acquirer against the resolver HTTP API.
type Client struct {
	cfg      Config
	logger   *logger.Logger
	client   *http.Client
	download *http.Client
}

// apiResponse is the resolver API answer shape.
type apiResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	VideoURL string `json:"video_url"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Platform string `json:"platform"`
}

// NewClient creates a resolver client and ensures the download directory exists.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 2 * time.Minute
	}
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	return &Client{
		cfg:      cfg,
		logger:   log,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		download: &http.Client{Timeout: cfg.DownloadTimeout},
	}, nil
}

// Resolve looks up the direct media URL and metadata for a share link.
func (c *Client) Resolve(ctx context.Context, shareURL string) (*Clip, error) {
	reqURL := fmt.Sprintf("%s?key=%s&url=%s",
		c.cfg.APIURL, url.QueryEscape(c.cfg.APIKey), url.QueryEscape(shareURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode resolver response: %w", err)
	}

	if !body.Success {
		if body.Error != "" {
			return nil, fmt.Errorf("resolver error: %s", body.Error)
		}
		return nil, ErrNoMediaURL
	}
	if body.VideoURL == "" {
		return nil, ErrNoMediaURL
	}

	c.logger.Debug("share link resolved",
		logger.Field{Key: "platform", Value: body.Platform},
		logger.Field{Key: "author", Value: body.Author})

	return &Clip{
		MediaURL: body.VideoURL,
		Title:    body.Title,
		Author:   body.Author,
		Platform: body.Platform,
	}, nil
}

// Download streams the media to the download directory and returns the local
// file path. The file is removed again on any mid-stream failure.
func (c *Client) Download(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	name := fmt.Sprintf("clip_%d_%s.mp4",
		time.Now().UnixMilli(), strings.Split(uuid.NewString(), "-")[0])
	path := filepath.Join(c.cfg.DownloadDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close media file: %w", err)
	}

	c.logger.Debug("media downloaded", logger.Field{Key: "path", Value: path})
	return path, nil
}
