package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/store"
)

// mockBot records outgoing API calls for assertions.
type mockBot struct {
	mu       sync.Mutex
	sent     []telego.SendMessageParams
	sendErr  error
	commands *telego.SetMyCommandsParams
	updates  chan telego.Update
}

func newMockBot() *mockBot {
	return &mockBot{updates: make(chan telego.Update, 16)}
}

func (m *mockBot) GetMe(ctx context.Context) (*telego.User, error) {
	return &telego.User{ID: 1000, Username: "repostbot"}, nil
}

func (m *mockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, *params)
	return &telego.Message{MessageID: len(m.sent)}, nil
}

func (m *mockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = params
	return nil
}

func (m *mockBot) UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, opts ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return m.updates, nil
}

func (m *mockBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	return &telego.File{FileID: params.FileID, FilePath: "files/" + params.FileID}, nil
}

func (m *mockBot) FileDownloadURL(filepath string) string {
	return "https://api.telegram.invalid/" + filepath
}

// lastMessage returns the text of the most recent SendMessage call.
func (m *mockBot) lastMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

// fakeChatStore is an in-memory ChatStore.
type fakeChatStore struct {
	mu       sync.Mutex
	jobs     map[string]*job.Job
	accounts []*job.Account
	created  []store.CreateJobParams
	nextID   int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{jobs: make(map[string]*job.Job)}
}

func (s *fakeChatStore) CreateJob(ctx context.Context, params store.CreateJobParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("job-%d", s.nextID)
	s.created = append(s.created, params)
	s.jobs[id] = &job.Job{
		ID:           id,
		VideoURL:     params.VideoURL,
		MediaPath:    params.MediaPath,
		Caption:      params.Caption,
		ScheduleTime: params.ScheduleTime,
		AccountID:    params.AccountID,
		Requester:    params.Requester,
		Status:       job.StatusPending,
	}
	return id, nil
}

func (s *fakeChatStore) GetJobsByRequester(ctx context.Context, requester string, limit int) ([]*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*job.Job
	for _, j := range s.jobs {
		if j.Requester == requester {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeChatStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != job.StatusPending {
		return false, nil
	}
	delete(s.jobs, id)
	return true, nil
}

func (s *fakeChatStore) CreateAccount(ctx context.Context, name, cookies string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "acc-" + name
	s.accounts = append(s.accounts, &job.Account{ID: id, Name: name, Cookies: cookies})
	return id, nil
}

func (s *fakeChatStore) ListAccounts(ctx context.Context) ([]*job.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts, nil
}

func (s *fakeChatStore) DeleteAccount(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.accounts {
		if a.ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
