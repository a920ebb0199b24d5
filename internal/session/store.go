package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskdeck/internal/model"
)

// ErrNoSession is returned when a chat has no stored session.
var ErrNoSession = errors.New("no session")

// Store persists one authenticated session per chat. It is the single owner
// of the bearer token and decoded user profile; screens borrow read-only
// views and only the login, register and logout handlers write.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Set upserts the token and user profile for a chat.
func (s *Store) Set(ctx context.Context, chatID int64, token string, user model.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	db := s.db.WithContext(ctx)
	var sess model.Session
	err = db.Where("chat_id = ?", chatID).First(&sess).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"token":     token,
			"user_json": string(userJSON),
		}
		if err := db.Model(&sess).Updates(updates).Error; err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		sess = model.Session{ChatID: chatID, Token: token, UserJSON: string(userJSON)}
		if err := db.Create(&sess).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find session: %w", err)
	}
}

// Token returns the stored bearer token for a chat, or ErrNoSession.
func (s *Store) Token(ctx context.Context, chatID int64) (string, error) {
	sess, err := s.find(ctx, chatID)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// User returns the stored user profile for a chat, or ErrNoSession. A stored
// profile that no longer decodes counts as an invalid session.
func (s *Store) User(ctx context.Context, chatID int64) (model.User, error) {
	var user model.User
	sess, err := s.find(ctx, chatID)
	if err != nil {
		return user, err
	}
	if err := json.Unmarshal([]byte(sess.UserJSON), &user); err != nil {
		return user, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// Clear removes the session for a chat. Clearing an absent session is a no-op.
func (s *Store) Clear(ctx context.Context, chatID int64) error {
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).
		Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// All lists every stored session, used by the periodic digest and expiry sweep.
func (s *Store) All(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := s.db.WithContext(ctx).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) find(ctx context.Context, chatID int64) (*model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}
