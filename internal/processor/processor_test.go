package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieund/repostbot/internal/browser"
	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/logger"
	"github.com/hieund/repostbot/internal/resolver"
)

// fakeStore tracks status transitions in memory and enforces the same
// lifecycle rules as the real store.
type fakeStore struct {
	mu          sync.Mutex
	statuses    map[string]job.Status
	errors      map[string]string
	mediaPaths  map[string]string
	transitions []string
	accounts    map[string]*job.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses:   make(map[string]job.Status),
		errors:     make(map[string]string),
		mediaPaths: make(map[string]string),
		accounts:   make(map[string]*job.Account),
	}
}

func (s *fakeStore) SetStatus(ctx context.Context, id string, status job.Status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.statuses[id]
	if !ok {
		current = job.StatusPending
	}
	if !current.CanTransitionTo(status) {
		return fmt.Errorf("invalid transition %s -> %s", current, status)
	}
	s.statuses[id] = status
	s.errors[id] = errMsg
	s.transitions = append(s.transitions, string(status))
	return nil
}

func (s *fakeStore) SetMediaPath(ctx context.Context, id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaPaths[id] = path
	return nil
}

func (s *fakeStore) GetAccount(ctx context.Context, id string) (*job.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.New("account not found")
	}
	return a, nil
}

type fakeAcquirer struct {
	resolveErr  error
	downloadErr error
	mediaURL    string
	downloadDir string
	resolved    []string
	downloaded  []string
}

func (a *fakeAcquirer) Resolve(ctx context.Context, shareURL string) (*resolver.Clip, error) {
	a.resolved = append(a.resolved, shareURL)
	if a.resolveErr != nil {
		return nil, a.resolveErr
	}
	return &resolver.Clip{MediaURL: a.mediaURL, Title: "clip", Author: "author", Platform: "douyin"}, nil
}

func (a *fakeAcquirer) Download(ctx context.Context, mediaURL string) (string, error) {
	a.downloaded = append(a.downloaded, mediaURL)
	if a.downloadErr != nil {
		return "", a.downloadErr
	}
	path := filepath.Join(a.downloadDir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	requests []browser.Request
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (p *fakePublisher) Publish(ctx context.Context, req browser.Request) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return p.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	targets  []string
	err      error
}

func (n *fakeNotifier) Notify(ctx context.Context, requester, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, requester)
	n.messages = append(n.messages, message)
	return n.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testJob() *job.Job {
	return &job.Job{
		ID:        "job-1",
		VideoURL:  "https://v.douyin.com/abc123/",
		AccountID: "acc-1",
		Requester: "42",
		Status:    job.StatusPending,
		CreatedAt: time.Now(),
	}
}

func setup(t *testing.T) (*fakeStore, *fakeAcquirer, *fakePublisher, *fakeNotifier, *Processor) {
	t.Helper()
	store := newFakeStore()
	store.accounts["acc-1"] = &job.Account{
		ID: "acc-1", Name: "main-account", Cookies: `{"cookies":[]}`,
	}
	acquirer := &fakeAcquirer{
		mediaURL:    "https://cdn.test/123.mp4",
		downloadDir: t.TempDir(),
	}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	p := New(store, acquirer, publisher, notifier, nil, testLogger(t))
	return store, acquirer, publisher, notifier, p
}

func TestProcessSuccess(t *testing.T) {
	store, acquirer, publisher, notifier, p := setup(t)
	j := testJob()

	err := p.Process(context.Background(), j)
	require.NoError(t, err)

	// pending -> processing -> completed, nothing else.
	assert.Equal(t, []string{"processing", "completed"}, store.transitions)
	assert.Equal(t, job.StatusCompleted, store.statuses["job-1"])

	// Acquisition happened and the downloaded temp file was removed.
	assert.Equal(t, []string{"https://v.douyin.com/abc123/"}, acquirer.resolved)
	assert.Equal(t, []string{"https://cdn.test/123.mp4"}, acquirer.downloaded)
	mediaPath := store.mediaPaths["job-1"]
	require.NotEmpty(t, mediaPath)
	assert.NoFileExists(t, mediaPath)

	// The publish request carries the session export, with no in-platform
	// schedule: the job's own due time already elapsed.
	require.Len(t, publisher.requests, 1)
	assert.Equal(t, `{"cookies":[]}`, publisher.requests[0].CookiesJSON)
	assert.Nil(t, publisher.requests[0].ScheduleAt)

	// Success notification goes to the requester and names the account.
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "42", notifier.targets[0])
	assert.Contains(t, notifier.messages[0], "main-account")
}

func TestProcessAcquisitionFailure(t *testing.T) {
	store, acquirer, publisher, notifier, p := setup(t)
	acquirer.resolveErr = errors.New("Cannot find media URL")

	err := p.Process(context.Background(), testJob())
	require.Error(t, err)

	// Failed with exactly the acquisition error; no browser was involved.
	assert.Equal(t, job.StatusFailed, store.statuses["job-1"])
	assert.Equal(t, "Cannot find media URL", store.errors["job-1"])
	assert.Empty(t, publisher.requests)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Cannot find media URL")
}

func TestProcessAutomationFailure(t *testing.T) {
	store, _, publisher, notifier, p := setup(t)
	publisher.err = &browser.StepError{
		Step: browser.StepLocateTrigger,
		Err:  errors.New("all 3 selector strategies exhausted"),
	}

	err := p.Process(context.Background(), testJob())
	require.Error(t, err)

	assert.Equal(t, job.StatusFailed, store.statuses["job-1"])
	assert.True(t, strings.HasPrefix(store.errors["job-1"], "[locate_publish_trigger]"))

	// Downloaded media is removed on the failure path too.
	mediaPath := store.mediaPaths["job-1"]
	require.NotEmpty(t, mediaPath)
	assert.NoFileExists(t, mediaPath)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "[locate_publish_trigger]")
}

func TestProcessUserSuppliedMediaIsKept(t *testing.T) {
	store, acquirer, publisher, _, p := setup(t)

	path := filepath.Join(t.TempDir(), "local.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))

	j := testJob()
	j.MediaPath = path

	require.NoError(t, p.Process(context.Background(), j))

	// No acquisition, and the user's file survives the run.
	assert.Empty(t, acquirer.resolved)
	assert.FileExists(t, path)
	require.Len(t, publisher.requests, 1)
	assert.Equal(t, path, publisher.requests[0].MediaPath)
	assert.Equal(t, job.StatusCompleted, store.statuses["job-1"])
}

func TestProcessErrorTruncated(t *testing.T) {
	store, acquirer, _, notifier, p := setup(t)
	acquirer.resolveErr = errors.New(strings.Repeat("network unreachable ", 50))

	require.Error(t, p.Process(context.Background(), testJob()))

	stored := store.errors["job-1"]
	assert.LessOrEqual(t, len([]rune(stored)), maxStoredErrorLen+1)
	assert.True(t, strings.HasSuffix(stored, "…"))
	require.Len(t, notifier.messages, 1)
}

func TestProcessNotifierFailureIsSwallowed(t *testing.T) {
	store, _, _, notifier, p := setup(t)
	notifier.err = errors.New("chat unreachable")

	err := p.Process(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, store.statuses["job-1"])
}

func TestProcessSingleInFlight(t *testing.T) {
	store, _, publisher, _, p := setup(t)
	publisher.delay = 30 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("job-%d", i)
		store.mu.Lock()
		store.statuses[id] = job.StatusPending
		store.mu.Unlock()

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			j := testJob()
			j.ID = id
			_ = p.Process(context.Background(), j)
		}(id)
	}
	wg.Wait()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, 1, publisher.maxSeen, "at most one publish attempt at any instant")
	assert.Len(t, publisher.requests, 4)
}
