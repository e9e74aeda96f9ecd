package client

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"fluent-messenger/domain"
)

// ChatCache is the client's single authoritative local projection of the
// server state, keyed by chat id. It is only ever mutated through the merge
// functions below, which keeps the invariants (no duplicate messages,
// monotonic updatedAt, non-negative unread counts) in one place no matter
// which poller or user action triggers the write.
type ChatCache struct {
	mu     sync.Mutex
	chats  map[string]*domain.Chat
	unread map[string]int
}

func NewChatCache() *ChatCache {
	return &ChatCache{
		chats:  make(map[string]*domain.Chat),
		unread: make(map[string]int),
	}
}

// Replace installs a freshly fetched full aggregate, overwriting any local
// copy. Used on chat selection, where the server copy is authoritative.
func (c *ChatCache) Replace(chat domain.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats[chat.ID] = &chat
}

// SummaryOutcome describes what a global-poll summary merge did.
type SummaryOutcome int

const (
	SummaryUnchanged SummaryOutcome = iota
	SummaryInserted                 // no local copy existed; the user was just added
	SummaryAdvanced                 // remote updatedAt strictly ahead of local
)

// ApplySummary merges a summary from the global poll. A chat with no local
// copy is inserted as-is. An existing chat only adopts the summary when the
// remote updatedAt strictly advanced, and its local message log is kept
// untouched.
func (c *ChatCache) ApplySummary(remote domain.Chat) SummaryOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	local, ok := c.chats[remote.ID]
	if !ok {
		inserted := remote
		c.chats[remote.ID] = &inserted
		return SummaryInserted
	}
	if remote.UpdatedAt <= local.UpdatedAt {
		return SummaryUnchanged
	}
	local.UpdatedAt = remote.UpdatedAt
	local.Name = remote.Name
	local.Avatar = remote.Avatar
	local.ParticipantIDs = remote.ParticipantIDs
	return SummaryAdvanced
}

// ApplyNewMessages merges a full fetch of a chat into the local copy.
// Only messages whose ids are locally unknown are appended, in received
// order, so feeding the same fetch twice is a no-op. updatedAt and the read
// markers adopt the remote values (last-write-wins scalars).
// Returns the number of genuinely new messages.
func (c *ChatCache) ApplyNewMessages(remote domain.Chat) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	local, ok := c.chats[remote.ID]
	if !ok {
		inserted := remote
		c.chats[remote.ID] = &inserted
		return len(remote.Messages)
	}

	known := lo.SliceToMap(local.Messages, func(m domain.Message) (string, struct{}) {
		return m.ID, struct{}{}
	})
	fresh := 0
	for _, msg := range remote.Messages {
		if _, seen := known[msg.ID]; seen {
			continue
		}
		local.Messages = append(local.Messages, msg)
		fresh++
	}
	if remote.UpdatedAt > local.UpdatedAt {
		local.UpdatedAt = remote.UpdatedAt
	}
	local.LastReadTimestamp = remote.LastReadTimestamp
	return fresh
}

// AddMessage appends a single server-confirmed message (the send path).
// Duplicate ids are ignored, so an active-poll merge racing with the send
// response cannot double-insert.
func (c *ChatCache) AddMessage(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local, ok := c.chats[msg.ChatID]
	if !ok {
		return
	}
	for _, m := range local.Messages {
		if m.ID == msg.ID {
			return
		}
	}
	local.Messages = append(local.Messages, msg)
	if msg.Timestamp > local.UpdatedAt {
		local.UpdatedAt = msg.Timestamp
	}
}

// ApplyReadMarker records that userID read the chat at the given instant and
// zeroes the unread count. The marker never moves backwards.
func (c *ChatCache) ApplyReadMarker(chatID, userID string, at int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.unread, chatID)
	local, ok := c.chats[chatID]
	if !ok {
		return
	}
	if local.LastReadTimestamp == nil {
		local.LastReadTimestamp = make(map[string]int64)
	}
	if at > local.LastReadTimestamp[userID] {
		local.LastReadTimestamp[userID] = at
	}
}

// ZeroUnread optimistically clears the unread badge before the server has
// acknowledged the read. Never rolled back on failure.
func (c *ChatCache) ZeroUnread(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unread, chatID)
}

// SetUnread stores a recomputed unread count. Counts below zero are clamped;
// the derivation can never legitimately produce one.
func (c *ChatCache) SetUnread(chatID string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if count < 0 {
		count = 0
	}
	c.unread[chatID] = count
}

func (c *ChatCache) Unread(chatID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[chatID]
}

// Get returns a copy of the cached chat.
func (c *ChatCache) Get(chatID string) (domain.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local, ok := c.chats[chatID]
	if !ok {
		return domain.Chat{}, false
	}
	return copyChat(local), true
}

// Chats returns copies of all cached chats, most recently updated first.
func (c *ChatCache) Chats() []domain.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Chat, 0, len(c.chats))
	for _, chat := range c.chats {
		out = append(out, copyChat(chat))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out
}

// copyChat deep-copies the mutable parts so callers cannot bypass the merge
// functions by writing into a returned chat.
func copyChat(chat *domain.Chat) domain.Chat {
	out := *chat
	out.Messages = append([]domain.Message(nil), chat.Messages...)
	out.ParticipantIDs = append([]string(nil), chat.ParticipantIDs...)
	if chat.LastReadTimestamp != nil {
		out.LastReadTimestamp = make(map[string]int64, len(chat.LastReadTimestamp))
		for k, v := range chat.LastReadTimestamp {
			out.LastReadTimestamp[k] = v
		}
	}
	return out
}
