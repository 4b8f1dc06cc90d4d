package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"
	"ws-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storeMessages(t *testing.T, repository MessageRepository, chatID uuid.UUID, texts ...string) []DiskMessage {
	at := time.Now().UTC()
	var stored []DiskMessage
	for i, text := range texts {
		message := DiskMessage{
			ID:        uuid.New(),
			ChatID:    chatID,
			SenderID:  uuid.New(),
			Text:      text,
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repository.StoreMessage(message))
		stored = append(stored, message)
	}
	return stored
}

func texts(messages []DiskMessage) []string {
	return lo.Map(messages, func(m DiskMessage, _ int) string { return m.Text })
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	chatID := uuid.New()

	storeMessages(t, repository, chatID, "first", "second", "third")
	// Given a message in another chat
	storeMessages(t, repository, uuid.New(), "elsewhere")

	fetched, err := repository.GetMessages(chatID, 0, 0)
	req.NoError(err)
	req.Equal([]string{"first", "second", "third"}, texts(fetched))
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	chatID := uuid.New()
	storeMessages(t, repository, chatID, "first", "second", "third")

	// When no explicit limit is given the configured one applies
	fetched, err := repository.GetMessages(chatID, 0, 0)
	req.NoError(err)
	// Then the most recent page comes back in chronological order
	req.Equal([]string{"second", "third"}, texts(fetched))
}

func Test_Get_Messages_With_Offset(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	chatID := uuid.New()
	storeMessages(t, repository, chatID, "a", "b", "c", "d", "e")

	fetched, err := repository.GetMessages(chatID, 2, 1)
	req.NoError(err)
	req.Equal([]string{"c", "d"}, texts(fetched))

	fetched, err = repository.GetMessages(chatID, 10, 10)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Get_Message_By_ID(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	stored := storeMessages(t, repository, uuid.New(), "hello")[0]

	fetched, err := repository.GetMessage(stored.ID)
	req.NoError(err)
	req.Equal(stored.ID, fetched.ID)
	req.Equal(stored.ChatID, fetched.ChatID)
	req.Equal(stored.SenderID, fetched.SenderID)
	req.True(stored.CreatedAt.Equal(fetched.CreatedAt))
	req.True(fetched.UpdatedAt.Equal(fetched.CreatedAt))
	req.Empty(fetched.Readers)

	_, err = repository.GetMessage(uuid.New())
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Add_Reader_Is_Monotonic_And_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	stored := storeMessages(t, repository, uuid.New(), "hello")[0]
	bob, clara := uuid.New(), uuid.New()

	updated, err := repository.AddReader(stored.ID, bob)
	req.NoError(err)
	req.Equal([]uuid.UUID{bob}, updated.Readers)

	// When bob reads again then clara reads
	updated, err = repository.AddReader(stored.ID, bob)
	req.NoError(err)
	req.Equal([]uuid.UUID{bob}, updated.Readers)
	updated, err = repository.AddReader(stored.ID, clara)
	req.NoError(err)

	// Then readers only grow, in read order
	req.Equal([]uuid.UUID{bob, clara}, updated.Readers)
	req.False(updated.UpdatedAt.Before(updated.CreatedAt))
}

func Test_Add_Reader_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	_, err := repository.AddReader(uuid.New(), uuid.New())
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Add_Reader_Concurrently(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	stored := storeMessages(t, repository, uuid.New(), "hello")[0]
	readers := lo.Times(20, func(_ int) uuid.UUID { return uuid.New() })

	var wg sync.WaitGroup
	for _, reader := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repository.AddReader(stored.ID, reader)
			req.NoError(err)
		}()
	}
	wg.Wait()

	fetched, err := repository.GetMessage(stored.ID)
	req.NoError(err)
	req.ElementsMatch(readers, fetched.Readers)
}
