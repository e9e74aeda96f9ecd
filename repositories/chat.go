//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"fluent-messenger/domain"
	"fluent-messenger/errors"
)

type IChatRepository interface {
	CreateChat(chat domain.Chat) (domain.Chat, error)
	GetChat(chatID string) (domain.Chat, error)
	ListChatsForUser(userID string) ([]domain.Chat, error)
	AppendMessage(chatID, senderID string, content domain.MessageContent) (domain.Message, error)
	MarkRead(chatID, userID string) error
}

// ChatRepository is the aggregate store for Chat. Every mutation is a
// load-full-state / transform / store-full-state cycle inside a single badger
// transaction, so two concurrent mutations on the same chat key can never
// interleave partial writes: badger detects the conflict and the loser
// re-runs its transformation against the winner's state.
type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) ChatRepository {
	return ChatRepository{db: db, log: log}
}

const chatKeyPrefix = "chat:"

// maxMutationRetries bounds the conflict-retry loop. Contention on a single
// chat key is short (one message append), so the bound is far above anything
// a realistic burst of senders produces.
const maxMutationRetries = 64

func chatKey(chatID string) []byte {
	return []byte(chatKeyPrefix + chatID)
}

// CreateChat persists a new chat aggregate. The caller is expected to have
// assigned the id and validated the participant list.
func (r ChatRepository) CreateChat(chat domain.Chat) (domain.Chat, error) {
	data, err := json.Marshal(chat)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("marshal chat: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(chat.ID), data)
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (r ChatRepository) GetChat(chatID string) (domain.Chat, error) {
	var chat domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(chatID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// ListChatsForUser scans the chat keyspace and keeps the aggregates the user
// participates in. Acceptable for the expected chat counts; a secondary
// user->chats index would be the next step if this ever showed up in profiles.
func (r ChatRepository) ListChatsForUser(userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(chatKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var chat domain.Chat
				if err := json.Unmarshal(val, &chat); err != nil {
					return err
				}
				if chat.HasParticipant(userID) {
					chats = append(chats, chat)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return chats, err
}

// AppendMessage stamps a fresh id and a server-side timestamp, appends the
// message and advances the chat's updatedAt in one atomic mutation.
// The timestamp is taken inside the transaction, so on a conflict retry the
// message is re-stamped against the state that actually won.
func (r ChatRepository) AppendMessage(chatID, senderID string, content domain.MessageContent) (domain.Message, error) {
	var message domain.Message
	err := r.mutate(chatID, func(chat *domain.Chat) error {
		// Membership is checked against the state inside the transaction,
		// so a sender removed by a concurrent mutation cannot slip a
		// message in.
		if !chat.HasParticipant(senderID) {
			return fmt.Errorf("%w: sender %s is not a participant of chat %s", errors.ErrValidation, senderID, chatID)
		}
		ts := time.Now().UnixMilli()
		// Wall clocks can step backwards; never let a new message sort
		// before the tail of the log.
		if n := len(chat.Messages); n > 0 && chat.Messages[n-1].Timestamp > ts {
			ts = chat.Messages[n-1].Timestamp
		}
		message = domain.Message{
			ID:        uuid.New().String(),
			ChatID:    chat.ID,
			SenderID:  senderID,
			Content:   content,
			Timestamp: ts,
		}
		chat.Append(message)
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// MarkRead advances userID's read marker to now. Idempotent: repeated calls
// only ever move the marker forward. Participation is intentionally not
// checked, mirroring the lenient server behavior the clients rely on; a
// marker for a non-participant is inert since nothing ever reads it.
func (r ChatRepository) MarkRead(chatID, userID string) error {
	return r.mutate(chatID, func(chat *domain.Chat) error {
		chat.MarkRead(userID, time.Now().UnixMilli())
		return nil
	})
}

// mutate runs transform against the freshly loaded aggregate and writes the
// whole state back. badger's transaction conflict detection provides the
// per-key exclusivity; ErrConflict means another mutation committed first,
// in which case the transformation is re-applied to the new state.
func (r ChatRepository) mutate(chatID string, transform func(*domain.Chat) error) error {
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(chatKey(chatID))
			if err != nil {
				return err
			}
			var chat domain.Chat
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			}); err != nil {
				return err
			}
			if err := transform(&chat); err != nil {
				return err
			}
			data, err := json.Marshal(chat)
			if err != nil {
				return fmt.Errorf("marshal chat: %w", err)
			}
			return txn.Set(chatKey(chatID), data)
		})
		switch {
		case err == nil:
			return nil
		case stderrors.Is(err, badger.ErrConflict):
			r.log.Debug("Chat mutation conflict, retrying", "chat", chatID, "attempt", attempt+1)
			time.Sleep(time.Duration(attempt) * time.Millisecond)
			continue
		case stderrors.Is(err, badger.ErrKeyNotFound):
			return errors.ErrChatNotFound
		default:
			return err
		}
	}
	return fmt.Errorf("chat %s: mutation retries exhausted", chatID)
}
