package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
	"ws-chat/domain"
	"ws-chat/errors"
	"ws-chat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	ChatForParticipant(ctx context.Context, chatID, userID uuid.UUID) (domain.Chat, error)
	SaveMessage(ctx context.Context, senderID, chatID uuid.UUID, text string) (domain.Message, error)
	AddReader(ctx context.Context, chatID, messageID, userID uuid.UUID) (domain.Message, error)
	CreateChat(ctx context.Context, ownerID uuid.UUID, name string, chatType domain.ChatType, participants []uuid.UUID) (domain.Chat, error)
	MyChats(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	AllChats(ctx context.Context) ([]domain.Chat, error)
	History(ctx context.Context, chatID, userID uuid.UUID, limit, offset int) ([]domain.Message, error)
	Leave(ctx context.Context, chatID, userID uuid.UUID) error
}

// ChatService is the persistence collaborator of the websocket dispatcher and the REST API.
// Membership failures are all reported as not found, so a chat never leaks to a non participant.
type ChatService struct {
	log      *slog.Logger
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(
	log *slog.Logger,
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
) *ChatService {
	return &ChatService{log: log, chats: chats, messages: messages, users: users}
}

// ChatForParticipant returns the chat when userID belongs to it, ErrChatNotFound otherwise.
func (s *ChatService) ChatForParticipant(_ context.Context, chatID, userID uuid.UUID) (domain.Chat, error) {
	chat, err := s.participantChat(chatID, userID)
	if err != nil {
		return domain.Chat{}, err
	}
	return s.toDomainChat(chat)
}

// SaveMessage stamps a new message with its id and server time.
func (s *ChatService) SaveMessage(_ context.Context, senderID, chatID uuid.UUID, text string) (domain.Message, error) {
	sender, err := s.users.GetUserByID(senderID)
	if err != nil {
		return domain.Message{}, err
	}
	message := repositories.DiskMessage{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(message); err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	return domain.Message{
		ID:        message.ID,
		ChatID:    message.ChatID,
		Sender:    toDomainUser(sender),
		Text:      message.Text,
		Readers:   []domain.User{},
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.CreatedAt,
	}, nil
}

// AddReader marks messageID as read by userID. Unknown messages, messages of another chat and
// non participants all fail with ErrNotAParticipant.
func (s *ChatService) AddReader(_ context.Context, chatID, messageID, userID uuid.UUID) (domain.Message, error) {
	message, err := s.messages.GetMessage(messageID)
	if stderrors.Is(err, errors.ErrMessageNotFound) {
		return domain.Message{}, fmt.Errorf("%w: unknown message", errors.ErrNotAParticipant)
	}
	if err != nil {
		return domain.Message{}, err
	}
	if message.ChatID != chatID {
		return domain.Message{}, fmt.Errorf("%w: message of another chat", errors.ErrNotAParticipant)
	}
	if _, err := s.participantChat(chatID, userID); err != nil {
		if stderrors.Is(err, errors.ErrChatNotFound) {
			return domain.Message{}, errors.ErrNotAParticipant
		}
		return domain.Message{}, err
	}

	message, err = s.messages.AddReader(messageID, userID)
	if err != nil {
		return domain.Message{}, err
	}
	return s.toDomainMessage(message)
}

func (s *ChatService) CreateChat(_ context.Context, ownerID uuid.UUID, name string, chatType domain.ChatType, participants []uuid.UUID) (domain.Chat, error) {
	if !chatType.Valid() {
		return domain.Chat{}, fmt.Errorf("%w: %q", errors.ErrInvalidChatType, chatType)
	}
	for _, participant := range lo.Uniq(participants) {
		if _, err := s.users.GetUserByID(participant); err != nil {
			if stderrors.Is(err, errors.ErrUserNotFound) {
				return domain.Chat{}, errors.ErrUnknownUser
			}
			return domain.Chat{}, err
		}
	}
	chat, err := s.chats.CreateChat(name, chatType, ownerID, participants)
	if err != nil {
		return domain.Chat{}, err
	}
	s.log.Info("Chat created", "chat_id", chat.ID, "user_id", ownerID, "members", len(chat.Members))
	return s.toDomainChat(chat)
}

func (s *ChatService) MyChats(_ context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats, err := s.chats.ListChatsOf(userID)
	if err != nil {
		return nil, err
	}
	return s.toDomainChats(chats)
}

func (s *ChatService) AllChats(_ context.Context) ([]domain.Chat, error) {
	chats, err := s.chats.ListChats()
	if err != nil {
		return nil, err
	}
	return s.toDomainChats(chats)
}

// History returns a page of the chat, newest page first, messages in chronological order.
func (s *ChatService) History(_ context.Context, chatID, userID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if _, err := s.participantChat(chatID, userID); err != nil {
		return nil, err
	}
	messages, err := s.messages.GetMessages(chatID, limit, max(offset, 0))
	if err != nil {
		return nil, err
	}
	history := make([]domain.Message, 0, len(messages))
	for _, message := range messages {
		m, err := s.toDomainMessage(message)
		if err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, nil
}

// Leave removes userID from the chat. When the owner leaves, the chat is deleted with its messages.
func (s *ChatService) Leave(_ context.Context, chatID, userID uuid.UUID) error {
	chat, err := s.participantChat(chatID, userID)
	if err != nil {
		return err
	}
	if chat.OwnerID == userID {
		s.log.Info("Owner left, deleting chat", "chat_id", chatID, "user_id", userID)
		return s.chats.DeleteChat(chatID)
	}
	return s.chats.RemoveMember(chatID, userID)
}

func (s *ChatService) participantChat(chatID, userID uuid.UUID) (repositories.DiskChat, error) {
	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return repositories.DiskChat{}, err
	}
	if !chat.IsMember(userID) && chat.OwnerID != userID {
		return repositories.DiskChat{}, errors.ErrChatNotFound
	}
	return chat, nil
}

func (s *ChatService) resolveUsers(ids []uuid.UUID) ([]domain.User, error) {
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.GetUserByID(id)
		if err != nil {
			return nil, fmt.Errorf("resolve user %s: %w", id, err)
		}
		users = append(users, toDomainUser(user))
	}
	return users, nil
}

func (s *ChatService) toDomainChat(chat repositories.DiskChat) (domain.Chat, error) {
	participants, err := s.resolveUsers(chat.Members)
	if err != nil {
		return domain.Chat{}, err
	}
	return domain.Chat{
		ID:           chat.ID,
		Name:         chat.Name,
		Type:         chat.Type,
		OwnerID:      chat.OwnerID,
		Participants: participants,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}, nil
}

func (s *ChatService) toDomainChats(chats []repositories.DiskChat) ([]domain.Chat, error) {
	result := make([]domain.Chat, 0, len(chats))
	for _, chat := range chats {
		c, err := s.toDomainChat(chat)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *ChatService) toDomainMessage(message repositories.DiskMessage) (domain.Message, error) {
	sender, err := s.users.GetUserByID(message.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	readers, err := s.resolveUsers(message.Readers)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        message.ID,
		ChatID:    message.ChatID,
		Sender:    toDomainUser(sender),
		Text:      message.Text,
		Readers:   readers,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}, nil
}
