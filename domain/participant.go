// Package domain contains core concepts of the chat system.
// This file defines User entities and the identity they carry.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// Identity is the immutable identifier of an authenticated user.
type Identity = uuid.UUID

// User is a chat participant as seen by other participants.
type User struct {
	ID       Identity
	Email    string
	Username string
}
