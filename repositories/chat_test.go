package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fluent-messenger/domain"
	"fluent-messenger/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestChat(t *testing.T, repo ChatRepository, participants ...string) domain.Chat {
	t.Helper()
	chat, err := repo.CreateChat(domain.Chat{
		ID:                uuid.New().String(),
		Type:              domain.ChatPrivate,
		ParticipantIDs:    participants,
		Messages:          []domain.Message{},
		CreatedAt:         1,
		UpdatedAt:         1,
		LastReadTimestamp: map[string]int64{},
	})
	require.NoError(t, err)
	return chat
}

func Test_Append_Message_Stamps_And_Advances_UpdatedAt(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	message, err := repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: "hi"})
	req.NoError(err)
	req.NotEmpty(message.ID)
	req.Equal(chat.ID, message.ChatID)
	req.Positive(message.Timestamp)

	stored, err := repo.GetChat(chat.ID)
	req.NoError(err)
	req.Len(stored.Messages, 1)
	req.Equal(message.ID, stored.Messages[0].ID)
	req.Equal(message.Timestamp, stored.UpdatedAt)
	req.NoError(stored.CheckInvariants())
}

func Test_Append_To_Missing_Chat_Returns_Not_Found(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())

	_, err := repo.AppendMessage("no-such-chat", "alice", domain.TextContent{Text: "hi"})
	req.ErrorIs(err, errors.ErrChatNotFound)
}

func Test_Append_By_Non_Participant_Rejected(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	_, err := repo.AppendMessage(chat.ID, "mallory", domain.TextContent{Text: "hi"})
	req.ErrorIs(err, errors.ErrValidation)
}

// Concurrent appends on one chat must all survive: no lost updates, no
// duplicates, updatedAt equal to the newest timestamp.
func Test_Concurrent_Appends_Keep_Every_Message(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	const senders = 16
	var wg sync.WaitGroup
	errs := make([]error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: fmt.Sprintf("msg %d", i)})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		req.NoError(err)
	}

	stored, err := repo.GetChat(chat.ID)
	req.NoError(err)
	req.Len(stored.Messages, senders)

	seen := make(map[string]bool, senders)
	maxTimestamp := int64(0)
	for _, msg := range stored.Messages {
		req.False(seen[msg.ID], "duplicate message %s", msg.ID)
		seen[msg.ID] = true
		if msg.Timestamp > maxTimestamp {
			maxTimestamp = msg.Timestamp
		}
	}
	req.Equal(maxTimestamp, stored.UpdatedAt)
	req.NoError(stored.CheckInvariants())
}

// Appends racing read-marker updates must not lose either kind of mutation.
func Test_Concurrent_Appends_And_Mark_Read(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	const rounds = 8
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: fmt.Sprintf("msg %d", i)})
			req.NoError(err)
		}(i)
		go func() {
			defer wg.Done()
			req.NoError(repo.MarkRead(chat.ID, "bob"))
		}()
	}
	wg.Wait()

	stored, err := repo.GetChat(chat.ID)
	req.NoError(err)
	req.Len(stored.Messages, rounds)
	req.Positive(stored.LastReadTimestamp["bob"])
}

func Test_Mark_Read_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	_, err := repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: "hi"})
	req.NoError(err)

	req.NoError(repo.MarkRead(chat.ID, "bob"))
	first, err := repo.GetChat(chat.ID)
	req.NoError(err)

	req.NoError(repo.MarkRead(chat.ID, "bob"))
	second, err := repo.GetChat(chat.ID)
	req.NoError(err)

	// The marker may only move forward, and a repeat call with nothing new
	// to read keeps the unread count at zero.
	req.GreaterOrEqual(second.LastReadTimestamp["bob"], first.LastReadTimestamp["bob"])
	req.Zero(second.UnreadCount("bob"))
}

func Test_Mark_Read_On_Missing_Chat_Returns_Not_Found(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())

	err := repo.MarkRead("no-such-chat", "bob")
	req.True(stderrors.Is(err, errors.ErrChatNotFound))
}

func Test_Unread_Count_Lifecycle(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())
	chat := newTestChat(t, repo, "alice", "bob")

	const fromAlice = 3
	for i := 0; i < fromAlice; i++ {
		_, err := repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: fmt.Sprintf("msg %d", i)})
		req.NoError(err)
	}

	stored, err := repo.GetChat(chat.ID)
	req.NoError(err)
	req.Equal(fromAlice, stored.UnreadCount("bob"))

	req.NoError(repo.MarkRead(chat.ID, "bob"))
	stored, err = repo.GetChat(chat.ID)
	req.NoError(err)
	req.Zero(stored.UnreadCount("bob"))

	_, err = repo.AppendMessage(chat.ID, "alice", domain.TextContent{Text: "one more"})
	req.NoError(err)
	stored, err = repo.GetChat(chat.ID)
	req.NoError(err)
	req.Equal(1, stored.UnreadCount("bob"))
}

func Test_List_Chats_Filters_By_Participation(t *testing.T) {
	req := require.New(t)
	repo := NewChatRepository(openTestDB(t), slog.Default())

	withBob := newTestChat(t, repo, "alice", "bob")
	newTestChat(t, repo, "alice", "carol")

	chats, err := repo.ListChatsForUser("bob")
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal(withBob.ID, chats[0].ID)
}
