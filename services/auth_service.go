package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"ws-chat/auth"
	"ws-chat/domain"
	"ws-chat/errors"
	"ws-chat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IAuthService interface {
	Register(email, username, password string) (Session, error)
	Login(username, password string) (Token, error)
	Me(userID uuid.UUID) (domain.User, error)
	ListUsers(except uuid.UUID) ([]domain.User, error)
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

type Token string

// Session is what a fresh registration hands back to the client.
type Session struct {
	Token  Token
	UserID uuid.UUID
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(email, username, password string) (Session, error) {
	// 1. Validate business rules before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Email: email, Username: username, Password: password}); err != nil {
		return Session{}, err
	}

	// 2. Hash in the service layer, the repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist, ErrUserAlreadyExists when the username is taken
	user, err := s.userRepository.CreateUser(email, username, hashedPassword)
	if err != nil {
		return Session{}, err
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: Token(token), UserID: user.ID}, nil
}

func (s *AuthService) Login(username, password string) (Token, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}

func (s *AuthService) Me(userID uuid.UUID) (domain.User, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(user), nil
}

// ListUsers returns every account except the caller.
func (s *AuthService) ListUsers(except uuid.UUID) ([]domain.User, error) {
	users, err := s.userRepository.ListUsers()
	if err != nil {
		return nil, err
	}
	others := lo.Filter(users, func(u repositories.User, _ int) bool { return u.ID != except })
	return lo.Map(others, func(u repositories.User, _ int) domain.User { return toDomainUser(u) }), nil
}

// Authenticate resolves a bearer token to its user. A valid token of a deleted account is rejected too.
func (s *AuthService) Authenticate(_ context.Context, token string) (domain.User, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.userRepository.GetUserByID(userID)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown subject", errors.ErrUnauthenticated)
	}
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(user), nil
}

func toDomainUser(u repositories.User) domain.User {
	return domain.User{ID: u.ID, Email: u.Email, Username: u.Username}
}
