package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatType string

const (
	ChatPrivate ChatType = "PRIVATE"
	ChatGroup   ChatType = "GROUP"
)

func (t ChatType) Valid() bool {
	return t == ChatPrivate || t == ChatGroup
}

type Chat struct {
	ID           uuid.UUID
	Name         string
	Type         ChatType
	OwnerID      Identity
	Participants []User
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParticipantIDs returns the chat membership, owner included, without duplicates.
func (c Chat) ParticipantIDs() []Identity {
	ids := lo.Map(c.Participants, func(u User, _ int) Identity { return u.ID })
	if c.OwnerID != uuid.Nil {
		ids = append(ids, c.OwnerID)
	}
	return lo.Uniq(ids)
}

func (c Chat) HasParticipant(id Identity) bool {
	return lo.Contains(c.ParticipantIDs(), id)
}
