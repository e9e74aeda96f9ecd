package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fluent-messenger/domain"
	"fluent-messenger/services"
)

// ViewState is the conversation-view lifecycle.
type ViewState int

const (
	NoChatSelected ViewState = iota
	ChatLoading
	ChatActive
)

// Session is the sync engine for one logged-in user. It owns at most one
// active poller (fast refresh of the open chat) and one global poller (slow
// refresh of all summaries); both handles die with the session, never with
// the process.
type Session struct {
	api   *APIClient
	cache *ChatCache
	log   *slog.Logger
	user  domain.User

	activeInterval time.Duration
	globalInterval time.Duration

	mu             sync.Mutex
	state          ViewState
	selectedChatID string
	activeCancel   context.CancelFunc
	globalCancel   context.CancelFunc
}

// NewSession validates the poll cadences and builds a session. The active
// poll must run strictly more often than the global poll so the open
// conversation stays the most responsive surface.
func NewSession(apiClient *APIClient, log *slog.Logger, user domain.User, activeInterval, globalInterval time.Duration) (*Session, error) {
	if activeInterval <= 0 || globalInterval <= 0 {
		return nil, fmt.Errorf("poll intervals must be positive")
	}
	if activeInterval >= globalInterval {
		return nil, fmt.Errorf("active poll interval (%s) must be shorter than global poll interval (%s)",
			activeInterval, globalInterval)
	}
	return &Session{
		api:            apiClient,
		cache:          NewChatCache(),
		log:            log,
		user:           user,
		activeInterval: activeInterval,
		globalInterval: globalInterval,
		state:          NoChatSelected,
	}, nil
}

func (s *Session) User() domain.User { return s.user }

func (s *Session) Chats() []domain.Chat { return s.cache.Chats() }

func (s *Session) Chat(chatID string) (domain.Chat, bool) { return s.cache.Get(chatID) }

func (s *Session) Unread(chatID string) int { return s.cache.Unread(chatID) }

func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SelectedChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedChatID
}

// LoadInitialData fetches the user directory and the chat summaries, seeds
// the cache and starts the global poller. It returns the directory for the
// caller's rendering; the chats land in the cache.
func (s *Session) LoadInitialData(ctx context.Context) ([]domain.User, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.api.ListChatSummaries(ctx, s.user.ID)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		s.cache.ApplySummary(summary)
	}
	s.StartGlobalPolling()
	return users, nil
}

// SelectChat is the conversation-view transition. The previous active poller
// is stopped synchronously before anything else, then the full aggregate is
// fetched unless the local copy already carries messages, the chat is marked
// read, and the new active poller starts.
// Passing an empty id deselects without selecting a replacement.
func (s *Session) SelectChat(ctx context.Context, chatID string) error {
	s.StopActivePolling()

	if chatID == "" {
		s.setState(NoChatSelected, "")
		return nil
	}

	cached, ok := s.cache.Get(chatID)
	if !ok || len(cached.Messages) == 0 {
		s.setState(ChatLoading, "")
		full, err := s.api.GetChat(ctx, chatID)
		if err != nil {
			s.setState(NoChatSelected, "")
			return err
		}
		s.cache.Replace(full)
	}

	s.setState(ChatActive, chatID)
	s.MarkChatRead(ctx, chatID)
	s.startActivePolling(chatID)
	return nil
}

// MarkChatRead zeroes the local unread count before the network call
// resolves, so the UI immediately matches the user's intent, then tells the
// server. On failure the optimistic zero is kept: the next successful poll
// self-heals, and flashing the badge back would be worse than a short
// undercount.
func (s *Session) MarkChatRead(ctx context.Context, chatID string) {
	s.cache.ZeroUnread(chatID)
	if err := s.api.MarkRead(ctx, chatID, s.user.ID); err != nil {
		s.log.Warn("Mark read failed, keeping optimistic zero", "chat", chatID, "err", err)
		return
	}
	// Client-side approximation; the authoritative marker arrives with the
	// next full fetch.
	s.cache.ApplyReadMarker(chatID, s.user.ID, time.Now().UnixMilli())
}

// SendMessage posts the message and merges the server-confirmed result.
// Errors propagate so the caller can surface them.
func (s *Session) SendMessage(ctx context.Context, chatID string, content domain.MessageContent) (domain.Message, error) {
	message, err := s.api.SendMessage(ctx, chatID, s.user.ID, content)
	if err != nil {
		return domain.Message{}, err
	}
	s.cache.AddMessage(message)
	return message, nil
}

// CreateChat creates the conversation server-side and caches it.
func (s *Session) CreateChat(ctx context.Context, req services.CreateChatRequest) (domain.Chat, error) {
	chat, err := s.api.CreateChat(ctx, req)
	if err != nil {
		return domain.Chat{}, err
	}
	s.cache.Replace(chat)
	return chat, nil
}

// Logout stops both pollers before any other teardown, so no stale tick can
// write into a dead session.
func (s *Session) Logout() {
	s.StopActivePolling()
	s.StopGlobalPolling()
	s.setState(NoChatSelected, "")
}

// startActivePolling launches the fast per-conversation poller. Any prior
// poller is cancelled first; the session holds at most one.
func (s *Session) startActivePolling(chatID string) {
	s.StopActivePolling()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.activeCancel = cancel
	s.mu.Unlock()

	go s.runActivePoll(ctx, chatID)
}

// StopActivePolling synchronously cancels the active poller. A tick already
// in flight still completes its network call, but its completion re-checks
// that the chat is still selected before touching shared state.
func (s *Session) StopActivePolling() {
	s.mu.Lock()
	cancel := s.activeCancel
	s.activeCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) runActivePoll(ctx context.Context, chatID string) {
	ticker := time.NewTicker(s.activeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remote, err := s.api.GetChat(ctx, chatID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Fail-stop rather than risk a runaway timer; the next
				// chat selection restarts polling.
				s.log.Error("Active poll failed, stopping", "chat", chatID, "err", err)
				return
			}
			if !s.isSelected(chatID) || ctx.Err() != nil {
				return
			}

			local, ok := s.cache.Get(chatID)
			if !ok || len(remote.Messages) <= len(local.Messages) {
				continue
			}
			if fresh := s.cache.ApplyNewMessages(remote); fresh > 0 {
				s.log.Debug("Active poll merged new messages", "chat", chatID, "count", fresh)
			}
			// The user is looking at the chat, so new messages are read
			// the moment they land.
			s.MarkChatRead(ctx, chatID)
		}
	}
}

// StartGlobalPolling launches the background summary poller. Starting again
// stops any prior instance; the session holds at most one.
func (s *Session) StartGlobalPolling() {
	s.StopGlobalPolling()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.globalCancel = cancel
	s.mu.Unlock()

	go s.runGlobalPoll(ctx)
}

func (s *Session) StopGlobalPolling() {
	s.mu.Lock()
	cancel := s.globalCancel
	s.globalCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) runGlobalPoll(ctx context.Context) {
	ticker := time.NewTicker(s.globalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summaries, err := s.api.ListChatSummaries(ctx, s.user.ID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// A missed tick self-heals on the next interval.
				s.log.Warn("Global poll failed, skipping tick", "err", err)
				continue
			}
			for _, remote := range summaries {
				outcome := s.cache.ApplySummary(remote)
				if outcome != SummaryAdvanced {
					continue
				}
				if s.isSelected(remote.ID) {
					// The active poll already reconciles the open chat
					// and marks it read; recomputing unread here would
					// fight with it.
					continue
				}
				// Independent asynchronous completion per chat. Two
				// overlapping recomputations for the same chat resolve
				// last-completion-wins, a documented transient
				// inaccuracy rather than a sequencing bug to fix here.
				go s.recomputeUnread(ctx, remote.ID)
			}
		}
	}
}

// recomputeUnread fetches the full chat and counts the messages newer than
// the user's read marker, feeding the badge for a background conversation.
func (s *Session) recomputeUnread(ctx context.Context, chatID string) {
	full, err := s.api.GetChat(ctx, chatID)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("Unread recomputation failed", "chat", chatID, "err", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	lastRead := full.LastReadTimestamp[s.user.ID]
	unread := 0
	for _, msg := range full.Messages {
		if msg.Timestamp > lastRead {
			unread++
		}
	}
	s.cache.SetUnread(chatID, unread)
}

func (s *Session) isSelected(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedChatID == chatID
}

func (s *Session) setState(state ViewState, selectedChatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.selectedChatID = selectedChatID
}
