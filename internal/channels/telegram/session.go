package telegram

import (
	"sync"
	"time"
)

// flowStep identifies where a user is inside a guided conversation.
type flowStep int

const (
	stepNone flowStep = iota

	// /upvideo flow
	stepAwaitLink
	stepAwaitAccount
	stepAwaitCaption
	stepAwaitSchedule
	stepAwaitConfirm

	// /newprofile flow
	stepAwaitProfileName
	stepAwaitProfileCookies
)

// sessionTTL bounds how long an unfinished flow is kept. A user who walks
// away mid-flow starts fresh next time.
const sessionTTL = 10 * time.Minute

// flowSession holds the partial inputs of one user's guided flow.
type flowSession struct {
	step        flowStep
	videoURL    string
	mediaPath   string
	accountID   string
	accountName string
	caption     string
	scheduleAt  *time.Time

	profileName string

	touchedAt time.Time
}

// sessions is a TTL map of in-progress flows keyed by user ID.
type sessions struct {
	mu sync.Mutex
	m  map[string]*flowSession
}

func newSessions() *sessions {
	return &sessions{m: make(map[string]*flowSession)}
}

// get returns the live session for a user, or nil when none exists or the
// existing one expired.
func (s *sessions) get(userID string) *flowSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return nil
	}
	if time.Since(sess.touchedAt) > sessionTTL {
		delete(s.m, userID)
		return nil
	}
	sess.touchedAt = time.Now()
	return sess
}

// begin replaces any existing session with a fresh one at the given step.
func (s *sessions) begin(userID string, step flowStep) *flowSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &flowSession{step: step, touchedAt: time.Now()}
	s.m[userID] = sess
	return sess
}

// clear drops a user's session, finished or abandoned.
func (s *sessions) clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
