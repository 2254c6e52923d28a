package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipe-planner/internal/recipe"
	"recipe-planner/internal/storage"
)

const sessionTTL = 24 * time.Hour

// Session holds a clipped recipe waiting for the user to save or discard it.
type Session struct {
	ChatID    int64        `json:"chatId"`
	Draft     recipe.Draft `json:"draft"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// SessionStore keeps one pending session per chat.
type SessionStore struct {
	store storage.Store
	now   func() time.Time
}

// NewSessionStore creates a SessionStore on top of a key-value store.
func NewSessionStore(store storage.Store) *SessionStore {
	return &SessionStore{store: store, now: time.Now}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("telegramSession_%d", chatID)
}

// Put replaces the chat's pending session.
func (s *SessionStore) Put(ctx context.Context, chatID int64, draft recipe.Draft) error {
	data, err := json.Marshal(Session{
		ChatID:    chatID,
		Draft:     draft,
		ExpiresAt: s.now().Add(sessionTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.store.Put(ctx, sessionKey(chatID), data)
}

// Get returns the chat's session, or nil when there is none or it expired.
func (s *SessionStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	data, err := s.store.Get(ctx, sessionKey(chatID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || s.now().After(sess.ExpiresAt) {
		return nil, s.Delete(ctx, chatID)
	}
	return &sess, nil
}

// Delete removes the chat's session.
func (s *SessionStore) Delete(ctx context.Context, chatID int64) error {
	return s.store.Delete(ctx, sessionKey(chatID))
}
