// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"cmp"
	"slices"
	"sync"
	"ws-chat/client"
	"ws-chat/domain/event"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Entry is one message as seen by the local client.
type Entry struct {
	MessageID uuid.UUID
	ChatID    uuid.UUID
	Author    string
	Text      string
	Readers   []string
	CreatedAt int64
	UpdatedAt int64
}

// Timeline holds the messages of every chat the client observed, per chat in creation order.
// A reader set never shrinks, even when an older UPDATE_READERS arrives late.
type Timeline struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
	chats   map[uuid.UUID][]uuid.UUID
}

func NewTimeline() *Timeline {
	return &Timeline{
		entries: make(map[uuid.UUID]*Entry),
		chats:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// Consume applies a frame and returns the readers it added, if any.
func (t *Timeline) Consume(f client.Frame) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, known := t.entries[f.MessageID]
	switch f.Type {
	case event.KindMessage:
		if known {
			return nil
		}
		t.insert(f)
		return nil
	case event.KindUpdateReaders:
		if !known {
			// Acknowledgement of a message posted before this client connected
			entry = t.insert(f)
		}
		readers := lo.Map(f.Readers, func(u client.User, _ int) string { return u.Username })
		added := lo.Without(readers, entry.Readers...)
		entry.Readers = lo.Union(entry.Readers, readers)
		entry.UpdatedAt = max(entry.UpdatedAt, f.UpdatedAt)
		return added
	default:
		return nil
	}
}

func (t *Timeline) insert(f client.Frame) *Entry {
	entry := &Entry{
		MessageID: f.MessageID,
		ChatID:    f.ChatID,
		Author:    f.User.Username,
		Text:      f.Message,
		Readers:   []string{},
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	t.entries[f.MessageID] = entry
	ids := append(t.chats[f.ChatID], f.MessageID)
	slices.SortStableFunc(ids, func(a, b uuid.UUID) int {
		return cmp.Compare(t.entries[a].CreatedAt, t.entries[b].CreatedAt)
	})
	t.chats[f.ChatID] = ids
	return entry
}

// Messages returns a copy of the chat timeline.
func (t *Timeline) Messages(chatID uuid.UUID) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Map(t.chats[chatID], func(id uuid.UUID, _ int) Entry {
		e := *t.entries[id]
		e.Readers = slices.Clone(e.Readers)
		return e
	})
}
