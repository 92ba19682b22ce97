package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieund/repostbot/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIURL:      apiURL,
		APIKey:      "test-key",
		DownloadDir: t.TempDir(),
	}, testLogger(t))
	require.NoError(t, err)
	return c
}

func TestResolveSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "https://example-platform.test/clip/123", r.URL.Query().Get("url"))
		w.Write([]byte(`{
			"success": true,
			"video_url": "https://cdn.test/123.mp4",
			"title": "a clip",
			"author": "someone",
			"platform": "douyin"
		}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	clip, err := c.Resolve(context.Background(), "https://example-platform.test/clip/123")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/123.mp4", clip.MediaURL)
	assert.Equal(t, "a clip", clip.Title)
	assert.Equal(t, "someone", clip.Author)
	assert.Equal(t, "douyin", clip.Platform)
}

func TestResolveAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "Cannot find media URL"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Resolve(context.Background(), "https://bad.test/clip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot find media URL")
}

func TestResolveMissingMediaURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "title": "no url"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Resolve(context.Background(), "https://bad.test/clip")
	assert.ErrorIs(t, err, ErrNoMediaURL)
}

func TestResolveHTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Resolve(context.Background(), "https://bad.test/clip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDownload(t *testing.T) {
	payload := []byte("fake video bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	path, err := c.Download(context.Background(), server.URL+"/clip.mp4")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, ".mp4", filepath.Ext(path))
}

func TestDownloadStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Download(context.Background(), server.URL+"/clip.mp4")
	require.Error(t, err)

	// No partial file is left behind.
	entries, err := os.ReadDir(c.cfg.DownloadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupOld(t *testing.T) {
	c := newTestClient(t, "https://unused.test")
	dir := c.cfg.DownloadDir

	oldFile := filepath.Join(dir, "clip_old.mp4")
	freshFile := filepath.Join(dir, "clip_fresh.mp4")
	otherFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0644))
	require.NoError(t, os.WriteFile(otherFile, []byte("keep"), 0644))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))
	require.NoError(t, os.Chtimes(otherFile, stale, stale))

	removed, err := c.CleanupOld(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
	assert.FileExists(t, otherFile)
}
