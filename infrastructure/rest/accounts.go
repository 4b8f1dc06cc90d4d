package rest

import (
	"fmt"
	"net/http"
	"ws-chat/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err))
		return
	}
	session, err := s.accounts.Register(body.Email, body.Username, body.Password)
	if err != nil {
		fail(c, err)
		return
	}
	s.log.Info("User registered", "user_id", session.UserID, "username", body.Username)
	c.JSON(http.StatusOK, registerResponse{
		AccessToken:  string(session.Token),
		UserID:       session.UserID,
		NewerExpired: false,
	})
}

func (s *Server) login(c *gin.Context) {
	var form loginRequest
	if err := c.ShouldBind(&form); err != nil {
		fail(c, errors.ErrInvalidCredentials)
		return
	}
	token, err := s.accounts.Login(form.Username, form.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: string(token), TokenType: "bearer"})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, toUserResponse(currentUser(c)))
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.accounts.ListUsers(currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}
