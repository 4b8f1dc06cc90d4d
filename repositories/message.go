//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"ws-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	messagePrefix      = "msg:"
	messageIndexPrefix = "msgidx:"
	readPrefix         = "read:"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessage(messageID uuid.UUID) (DiskMessage, error)
	GetMessages(chatID uuid.UUID, limit, offset int) ([]DiskMessage, error)
	AddReader(messageID, userID uuid.UUID) (DiskMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is a stored message with its readers in read order.
// UpdatedAt is the time of the latest read, CreatedAt when nobody read it yet.
type DiskMessage struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chat_id"`
	SenderID  uuid.UUID   `json:"sender_id"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"-"`
	Readers   []uuid.UUID `json:"-"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// "msgidx:{uuid}" points back to that key for lookups by id.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(message.ChatID, message.CreatedAt, message.ID)
	bytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), key)
	})
}

func (m MessageRepository) GetMessage(messageID uuid.UUID) (DiskMessage, error) {
	var message DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, messageID)
		return err
	})
	return message, err
}

// GetMessages returns the most recent page of a chat, skipping offset messages from the newest,
// in chronological order. limit <= 0 falls back to the configured limit, if any.
func (m MessageRepository) GetMessages(chatID uuid.UUID, limit, offset int) ([]DiskMessage, error) {
	if limit <= 0 && m.limitMessages != nil {
		limit = *m.limitMessages
	}
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix + chatID.String() + ":")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Start after the newest possible timestamp and walk back in time
		seekKey := append(slices.Clone(prefix), []byte("9999999999999999999")...)
		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(diskMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			var message DiskMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			}); err != nil {
				return err
			}
			if err := loadReaders(txn, &message); err != nil {
				return err
			}
			diskMessages = append(diskMessages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(diskMessages)
	return diskMessages, nil
}

// AddReader upserts a "read:{message_id}:{user_id}" marker and returns the message with its readers.
// A second read by the same user keeps the first read time.
func (m MessageRepository) AddReader(messageID, userID uuid.UUID) (DiskMessage, error) {
	err := m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messageIndexKey(messageID)); err != nil {
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrMessageNotFound
			}
			return err
		}
		key := readKey(messageID, userID)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		at := make([]byte, 8)
		binary.BigEndian.PutUint64(at, uint64(time.Now().UTC().UnixNano()))
		return txn.Set(key, at)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	// Read back after commit so concurrent readers of the same message are all visible
	return m.GetMessage(messageID)
}

func getMessage(txn *badger.Txn, messageID uuid.UUID) (DiskMessage, error) {
	item, err := txn.Get(messageIndexKey(messageID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return DiskMessage{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return DiskMessage{}, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return DiskMessage{}, err
	}
	item, err = txn.Get(key)
	if err != nil {
		return DiskMessage{}, err
	}
	var message DiskMessage
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &message)
	}); err != nil {
		return DiskMessage{}, err
	}
	return message, loadReaders(txn, &message)
}

type readMarker struct {
	userID uuid.UUID
	at     time.Time
}

// loadReaders fills Readers in read order and derives UpdatedAt.
func loadReaders(txn *badger.Txn, message *DiskMessage) error {
	prefix := []byte(readPrefix + message.ID.String() + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var markers []readMarker
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		userID, err := uuid.ParseBytes(item.Key()[len(prefix):])
		if err != nil {
			return err
		}
		var at time.Time
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupted read marker %q", item.Key())
			}
			at = time.Unix(0, int64(binary.BigEndian.Uint64(val))).UTC()
			return nil
		}); err != nil {
			return err
		}
		markers = append(markers, readMarker{userID: userID, at: at})
	}
	slices.SortStableFunc(markers, func(a, b readMarker) int { return a.at.Compare(b.at) })

	message.Readers = lo.Map(markers, func(r readMarker, _ int) uuid.UUID { return r.userID })
	message.UpdatedAt = message.CreatedAt
	if len(markers) > 0 && markers[len(markers)-1].at.After(message.CreatedAt) {
		message.UpdatedAt = markers[len(markers)-1].at
	}
	return nil
}

// chatMessageKeys lists every key owned by the messages of a chat.
func chatMessageKeys(txn *badger.Txn, chatID uuid.UUID) ([][]byte, error) {
	var keys [][]byte
	prefix := []byte(messagePrefix + chatID.String() + ":")
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		// msg:{chat_id}:{19 digits}:{uuid}
		messageID, err := uuid.ParseBytes(key[len(prefix)+20:])
		if err != nil {
			return nil, err
		}
		keys = append(keys, key, messageIndexKey(messageID))
		readKeys, err := keysWithPrefix(txn, []byte(readPrefix+messageID.String()+":"))
		if err != nil {
			return nil, err
		}
		keys = append(keys, readKeys...)
	}
	return keys, nil
}

func keysWithPrefix(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

func messageKey(chatID uuid.UUID, at time.Time, messageID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, chatID, at.UnixNano(), messageID))
}

func messageIndexKey(messageID uuid.UUID) []byte {
	return []byte(messageIndexPrefix + messageID.String())
}

func readKey(messageID, userID uuid.UUID) []byte {
	return []byte(readPrefix + messageID.String() + ":" + userID.String())
}
