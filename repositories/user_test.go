package repositories

import (
	"testing"
	"ws-chat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Create_And_Get_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser("alice@chat.io", "alice", "hash")
	req.NoError(err)
	req.NotEqual(uuid.Nil, created.ID)

	byID, err := repository.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal("alice@chat.io", byID.Email)
	req.Equal("hash", byID.PasswordHash)

	byName, err := repository.GetUserByUsername("Alice")
	req.NoError(err)
	req.Equal(created.ID, byName.ID)
}

func Test_Create_User_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("alice@chat.io", "alice", "hash")
	req.NoError(err)
	_, err = repository.CreateUser("other@chat.io", "ALICE", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	users, err := repository.ListUsers()
	req.NoError(err)
	req.Len(users, 1)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUserByID(uuid.New())
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = repository.GetUserByUsername("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
