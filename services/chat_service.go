package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"fluent-messenger/domain"
	"fluent-messenger/errors"
	"fluent-messenger/moderation"
	"fluent-messenger/repositories"
)

type IChatService interface {
	CreateChat(req CreateChatRequest) (domain.Chat, error)
	ListChatSummaries(userID string) ([]domain.Chat, error)
	GetChat(chatID string) (domain.Chat, error)
	ListMessages(chatID string) ([]domain.Message, error)
	SendMessage(chatID, senderID string, content domain.MessageContent) (domain.Message, error)
	MarkRead(chatID, userID string) error
}

type CreateChatRequest struct {
	Type           domain.ChatType
	Name           string
	ParticipantIDs []string
}

// ChatService enforces the request-level rules and delegates the atomic
// aggregate mutations to the repository.
type ChatService struct {
	chatRepository repositories.IChatRepository
	moderator      *moderation.Moderator
}

func NewChatService(repo repositories.IChatRepository, moderator *moderation.Moderator) *ChatService {
	return &ChatService{chatRepository: repo, moderator: moderator}
}

func (s *ChatService) CreateChat(req CreateChatRequest) (domain.Chat, error) {
	if len(req.ParticipantIDs) < 2 {
		return domain.Chat{}, fmt.Errorf("%w: at least two participants are required", errors.ErrValidation)
	}
	if req.Type != domain.ChatPrivate && req.Type != domain.ChatGroup {
		return domain.Chat{}, fmt.Errorf("%w: unknown chat type %q", errors.ErrValidation, req.Type)
	}
	if req.Type == domain.ChatGroup && req.Name == "" {
		return domain.Chat{}, fmt.Errorf("%w: group name is required for group chats", errors.ErrValidation)
	}

	now := time.Now().UnixMilli()
	chat := domain.Chat{
		ID:                uuid.New().String(),
		Type:              req.Type,
		ParticipantIDs:    req.ParticipantIDs,
		Messages:          []domain.Message{},
		CreatedAt:         now,
		UpdatedAt:         now,
		LastReadTimestamp: map[string]int64{},
	}
	if req.Type == domain.ChatGroup {
		chat.Name = req.Name
		chat.Avatar = AvatarURL(uuid.New().String())
	}
	return s.chatRepository.CreateChat(chat)
}

// ListChatSummaries returns the user's chats without message bodies, the
// payload the global poll runs on.
func (s *ChatService) ListChatSummaries(userID string) ([]domain.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", errors.ErrValidation)
	}
	chats, err := s.chatRepository.ListChatsForUser(userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(chats, func(c domain.Chat, _ int) domain.Chat {
		return c.Summary()
	}), nil
}

func (s *ChatService) GetChat(chatID string) (domain.Chat, error) {
	return s.chatRepository.GetChat(chatID)
}

func (s *ChatService) ListMessages(chatID string) ([]domain.Message, error) {
	chat, err := s.chatRepository.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	return chat.Messages, nil
}

// SendMessage censors text content and appends it to the chat. The id and
// timestamp are assigned by the repository inside the mutation.
func (s *ChatService) SendMessage(chatID, senderID string, content domain.MessageContent) (domain.Message, error) {
	if senderID == "" || content == nil {
		return domain.Message{}, fmt.Errorf("%w: senderId and content are required", errors.ErrValidation)
	}
	if text, ok := content.(domain.TextContent); ok {
		content = domain.TextContent{Text: s.moderator.Censor(text.Text)}
	}
	return s.chatRepository.AppendMessage(chatID, senderID, content)
}

func (s *ChatService) MarkRead(chatID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: userId is required", errors.ErrValidation)
	}
	return s.chatRepository.MarkRead(chatID, userID)
}
