package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsLifecycle(t *testing.T) {
	s := newSessions()

	assert.Nil(t, s.get("7"))

	sess := s.begin("7", stepAwaitLink)
	require.NotNil(t, sess)
	assert.Equal(t, stepAwaitLink, sess.step)
	assert.Same(t, sess, s.get("7"))

	// Sessions are per user.
	assert.Nil(t, s.get("8"))

	s.clear("7")
	assert.Nil(t, s.get("7"))
}

func TestSessionsBeginReplacesExisting(t *testing.T) {
	s := newSessions()

	first := s.begin("7", stepAwaitLink)
	first.videoURL = "https://v.douyin.com/abc/"

	second := s.begin("7", stepAwaitProfileName)
	assert.NotSame(t, first, second)
	assert.Empty(t, second.videoURL)
}

func TestSessionsExpire(t *testing.T) {
	s := newSessions()

	sess := s.begin("7", stepAwaitCaption)
	sess.touchedAt = time.Now().Add(-sessionTTL - time.Minute)

	assert.Nil(t, s.get("7"))
}

func TestSessionsGetRefreshesTTL(t *testing.T) {
	s := newSessions()

	sess := s.begin("7", stepAwaitCaption)
	sess.touchedAt = time.Now().Add(-sessionTTL + time.Second)

	require.NotNil(t, s.get("7"))
	assert.WithinDuration(t, time.Now(), sess.touchedAt, time.Second)
}
