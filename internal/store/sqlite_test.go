package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieund/repostbot/internal/job"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestAccount(t *testing.T, s *SQLiteStore) string {
	t.Helper()
	id, err := s.CreateAccount(context.Background(), "main", `{"cookies":[]}`)
	require.NoError(t, err)
	return id
}

func TestCreateAndGetJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	schedule := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL:     "https://example-platform.test/clip/123",
		Caption:      "hello",
		ScheduleTime: &schedule,
		AccountID:    accountID,
		Requester:    "42",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	j, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://example-platform.test/clip/123", j.VideoURL)
	assert.Equal(t, "hello", j.Caption)
	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, accountID, j.AccountID)
	assert.Equal(t, "42", j.Requester)
	require.NotNil(t, j.ScheduleTime)
	assert.True(t, j.ScheduleTime.Equal(schedule))
	assert.Empty(t, j.MediaPath)
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDueJobs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	immediateID, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	pastID, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/2", AccountID: accountID, Requester: "1", ScheduleTime: &past,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/3", AccountID: accountID, Requester: "1", ScheduleTime: &future,
	})
	require.NoError(t, err)

	due, err := s.GetDueJobs(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Oldest-created first, and never a job scheduled in the future.
	assert.Equal(t, immediateID, due[0].ID)
	assert.Equal(t, pastID, due[1].ID)
	for _, j := range due {
		if j.ScheduleTime != nil {
			assert.False(t, j.ScheduleTime.After(now))
		}
	}
}

func TestGetDueJobsSkipsNonPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, id, job.StatusProcessing, ""))

	due, err := s.GetDueJobs(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSetStatusEnforcesStateMachine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)

	// pending -> completed is not a legal path.
	err = s.SetStatus(ctx, id, job.StatusCompleted, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.SetStatus(ctx, id, job.StatusProcessing, ""))
	require.NoError(t, s.SetStatus(ctx, id, job.StatusFailed, "automation failure"))

	// Terminal states never transition back.
	err = s.SetStatus(ctx, id, job.StatusPending, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = s.SetStatus(ctx, id, job.StatusProcessing, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	j, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, j.Status)
	assert.Equal(t, "automation failure", j.Error)
}

func TestSetMediaPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)

	require.NoError(t, s.SetMediaPath(ctx, id, "/tmp/clip.mp4"))
	j, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/clip.mp4", j.MediaPath)

	assert.ErrorIs(t, s.SetMediaPath(ctx, "missing", "/tmp/x.mp4"), ErrNotFound)
}

func TestGetJobsByRequester(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	for i := 0; i < 3; i++ {
		_, err := s.CreateJob(ctx, CreateJobParams{
			VideoURL: "https://t/a", AccountID: accountID, Requester: "7",
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	_, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/b", AccountID: accountID, Requester: "8",
	})
	require.NoError(t, err)

	jobs, err := s.GetJobsByRequester(ctx, "7", 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, "7", j.Requester)
	}
}

func TestDeleteJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)

	deleted, err := s.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	// A job already picked up cannot be cancelled.
	id2, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/2", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, id2, job.StatusProcessing, ""))

	deleted, err = s.DeleteJob(ctx, id2)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAccounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.CreateAccount(ctx, "first", `{"cookies":[{"name":"a"}]}`)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	id2, err := s.CreateAccount(ctx, "second", `[]`)
	require.NoError(t, err)

	a, err := s.GetAccount(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "first", a.Name)
	assert.Equal(t, `{"cookies":[{"name":"a"}]}`, a.Cookies)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, id1, accounts[0].ID)
	assert.Equal(t, id2, accounts[1].ID)

	deleted, err := s.DeleteAccount(ctx, id2)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetAccount(ctx, id2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	accountID := createTestAccount(t, s)

	id, err := s.CreateJob(ctx, CreateJobParams{
		VideoURL: "https://t/1", AccountID: accountID, Requester: "1",
	})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, id, job.StatusProcessing, ""))

	stuck, err := s.ListByStatus(ctx, job.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, id, stuck[0].ID)

	pending, err := s.ListByStatus(ctx, job.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
