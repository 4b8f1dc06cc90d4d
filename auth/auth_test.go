package auth

import (
	"strings"
	"testing"
	"time"
	"ws-chat/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct horse battery staple"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_Invalid_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "plain-text")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"test@example.com", "alice", "password1"}, false},
		{"Invalid email", RegisterRequest{"notanemail", "alice", "password1"}, true},
		{"Username too short", RegisterRequest{"test@example.com", "al", "password1"}, true},
		{"Username with spaces", RegisterRequest{"test@example.com", "al ice", "password1"}, true},
		{"Password too short", RegisterRequest{"test@example.com", "alice", "short"}, true},
		{"Password too long (edge case)", RegisterRequest{"test@example.com", "alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidPassword)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestToken_Round_Trip(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", time.Hour)
	userID := uuid.New()

	token, err := manager.GenerateToken(userID)
	req.NoError(err)

	parsed, err := manager.ValidateToken(token)
	req.NoError(err)
	req.Equal(userID, parsed)
}

func TestToken_Rejected(t *testing.T) {
	userID := uuid.New()
	expired, err := NewTokenManager("secret", -time.Minute).GenerateToken(userID)
	require.NoError(t, err)
	otherKey, err := NewTokenManager("another secret", time.Hour).GenerateToken(userID)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: userID.String(),
		Issuer:  issuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "not-a-uuid",
		Issuer:  issuer,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", expired},
		{"signed with another key", otherKey},
		{"none algorithm", unsigned},
		{"subject is not a user id", badSubject},
	}
	manager := NewTokenManager("secret", time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateToken(tt.token)
			require.ErrorIs(t, err, errors.ErrUnauthenticated)
		})
	}
}
