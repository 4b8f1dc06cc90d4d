package rest

import (
	"ws-chat/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerResponse struct {
	AccessToken  string    `json:"access_token"`
	UserID       uuid.UUID `json:"user_id"`
	NewerExpired bool      `json:"newer_expired"`
}

type loginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
}

type createChatRequest struct {
	ChatName     string          `json:"chat_name" binding:"required"`
	ChatType     domain.ChatType `json:"chat_type" binding:"required"`
	Participants []uuid.UUID     `json:"participants"`
}

type chatResponse struct {
	ChatID       uuid.UUID       `json:"chat_id"`
	ChatName     string          `json:"chat_name"`
	ChatType     domain.ChatType `json:"chat_type"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Participants []userResponse  `json:"participants"`
}

type historyQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type messageResponse struct {
	MessageID uuid.UUID      `json:"message_id"`
	ChatID    uuid.UUID      `json:"chat_id"`
	Text      string         `json:"text"`
	User      userResponse   `json:"user"`
	Readers   []userResponse `json:"readers"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{UserID: u.ID, Email: u.Email, Username: u.Username}
}

func toUserResponses(users []domain.User) []userResponse {
	return lo.Map(users, func(u domain.User, _ int) userResponse { return toUserResponse(u) })
}

func toChatResponse(c domain.Chat) chatResponse {
	return chatResponse{
		ChatID:       c.ID,
		ChatName:     c.Name,
		ChatType:     c.Type,
		OwnerID:      c.OwnerID,
		Participants: toUserResponses(c.Participants),
	}
}

func toChatResponses(chats []domain.Chat) []chatResponse {
	return lo.Map(chats, func(c domain.Chat, _ int) chatResponse { return toChatResponse(c) })
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		MessageID: m.ID,
		ChatID:    m.ChatID,
		Text:      m.Text,
		User:      toUserResponse(m.Sender),
		Readers:   toUserResponses(m.Readers),
		CreatedAt: m.CreatedAt.Unix(),
		UpdatedAt: m.UpdatedAt.Unix(),
	}
}
