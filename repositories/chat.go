//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"time"
	"ws-chat/domain"
	"ws-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	chatPrefix   = "chat:"
	memberPrefix = "member:"
)

type IChatRepository interface {
	CreateChat(name string, chatType domain.ChatType, ownerID uuid.UUID, members []uuid.UUID) (DiskChat, error)
	GetChat(chatID uuid.UUID) (DiskChat, error)
	ListChats() ([]DiskChat, error)
	ListChatsOf(userID uuid.UUID) ([]DiskChat, error)
	RemoveMember(chatID, userID uuid.UUID) error
	DeleteChat(chatID uuid.UUID) error
}

type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) IChatRepository {
	return &ChatRepository{db: db}
}

// DiskChat is the stored chat. Members always contains the owner.
type DiskChat struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Type      domain.ChatType `json:"type"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Members   []uuid.UUID     `json:"members"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (c DiskChat) IsMember(userID uuid.UUID) bool {
	return slices.Contains(c.Members, userID)
}

// CreateChat stores "chat:{id}" plus one "member:{user_id}:{chat_id}" marker per member.
func (r ChatRepository) CreateChat(name string, chatType domain.ChatType, ownerID uuid.UUID, members []uuid.UUID) (DiskChat, error) {
	now := time.Now().UTC()
	chat := DiskChat{
		ID:        uuid.New(),
		Name:      name,
		Type:      chatType,
		OwnerID:   ownerID,
		Members:   lo.Uniq(append([]uuid.UUID{ownerID}, members...)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(chat)
	if err != nil {
		return DiskChat{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		for _, member := range chat.Members {
			if err := txn.Set(memberKey(member, chat.ID), nil); err != nil {
				return err
			}
		}
		return txn.Set(chatKey(chat.ID), data)
	})
	if err != nil {
		return DiskChat{}, err
	}
	return chat, nil
}

func (r ChatRepository) GetChat(chatID uuid.UUID) (DiskChat, error) {
	var chat DiskChat
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		chat, err = getChat(txn, chatID)
		return err
	})
	return chat, err
}

func (r ChatRepository) ListChats() ([]DiskChat, error) {
	var chats []DiskChat
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(chatPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var chat DiskChat
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			}); err != nil {
				return err
			}
			chats = append(chats, chat)
		}
		return nil
	})
	return chats, err
}

// ListChatsOf walks the "member:{user_id}:" markers, keys only.
func (r ChatRepository) ListChatsOf(userID uuid.UUID) ([]DiskChat, error) {
	var chats []DiskChat
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(memberPrefix + userID.String() + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chatID, err := uuid.ParseBytes(it.Item().Key()[len(prefix):])
			if err != nil {
				return err
			}
			chat, err := getChat(txn, chatID)
			if err != nil {
				return err
			}
			chats = append(chats, chat)
		}
		return nil
	})
	return chats, err
}

// RemoveMember drops userID from the chat. Removing a non member is a no-op.
func (r ChatRepository) RemoveMember(chatID, userID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		chat, err := getChat(txn, chatID)
		if err != nil {
			return err
		}
		if !chat.IsMember(userID) {
			return nil
		}
		chat.Members = lo.Without(chat.Members, userID)
		chat.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		if err := txn.Delete(memberKey(userID, chatID)); err != nil {
			return err
		}
		return txn.Set(chatKey(chatID), data)
	})
}

// DeleteChat removes the chat, its memberships, its messages and their read markers.
func (r ChatRepository) DeleteChat(chatID uuid.UUID) error {
	var keys [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		chat, err := getChat(txn, chatID)
		if err != nil {
			return err
		}
		keys = append(keys, chatKey(chatID))
		for _, member := range chat.Members {
			keys = append(keys, memberKey(member, chatID))
		}
		messageKeys, err := chatMessageKeys(txn, chatID)
		if err != nil {
			return err
		}
		keys = append(keys, messageKeys...)
		return nil
	})
	if err != nil {
		return err
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func getChat(txn *badger.Txn, chatID uuid.UUID) (DiskChat, error) {
	var chat DiskChat
	item, err := txn.Get(chatKey(chatID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return DiskChat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return DiskChat{}, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &chat)
	})
	return chat, err
}

func chatKey(chatID uuid.UUID) []byte {
	return []byte(chatPrefix + chatID.String())
}

func memberKey(userID, chatID uuid.UUID) []byte {
	return []byte(memberPrefix + userID.String() + ":" + chatID.String())
}
