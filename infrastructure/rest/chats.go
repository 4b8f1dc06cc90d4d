package rest

import (
	"fmt"
	"net/http"
	"ws-chat/domain"
	"ws-chat/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

func (s *Server) createChat(c *gin.Context) {
	var body createChatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, fmt.Errorf("%w: %v", errors.ErrProtocol, err))
		return
	}
	chat, err := s.chats.CreateChat(c.Request.Context(), currentUser(c).ID, body.ChatName, body.ChatType, body.Participants)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponse(chat))
}

func (s *Server) myChats(c *gin.Context) {
	chats, err := s.chats.MyChats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponses(chats))
}

func (s *Server) allChats(c *gin.Context) {
	chats, err := s.chats.AllChats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponses(chats))
}

func (s *Server) history(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, fmt.Errorf("%w: %v", errors.ErrProtocol, err))
		return
	}
	limit := lo.Ternary(query.Limit > 0, query.Limit, s.historyLimit)
	messages, err := s.chats.History(c.Request.Context(), chatID, currentUser(c).ID, limit, query.Offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return toMessageResponse(m)
	}))
}

func (s *Server) leave(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	if err := s.chats.Leave(c.Request.Context(), chatID, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// chatIDParam parses :chat_id. A malformed id is reported like an unknown chat.
func chatIDParam(c *gin.Context) (uuid.UUID, bool) {
	chatID, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		fail(c, errors.ErrChatNotFound)
		return uuid.Nil, false
	}
	return chatID, true
}
