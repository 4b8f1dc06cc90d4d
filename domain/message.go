// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Reader sets only grow; removal is never part of the model.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Message represents a persisted chat message with its readers resolved to users.
type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Sender    User
	Text      string
	Readers   []User
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Message) ReaderIDs() []Identity {
	return lo.Map(m.Readers, func(u User, _ int) Identity { return u.ID })
}
