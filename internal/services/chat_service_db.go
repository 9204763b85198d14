package services

import (
	"errors"
	"fmt"

	"barnaby_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultChatStore implements ChatStore over gorm/postgres.
type DefaultChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) ChatStore {
	return &DefaultChatStore{db: db}
}

// CreateChat persists a new chat record and returns its generated id. Ids are
// uuids, globally unique and never reused.
func (s *DefaultChatStore) CreateChat(owner, title string, messages []models.Message, docContext *string) (string, error) {
	history, err := models.EncodeMessages(messages)
	if err != nil {
		return "", err
	}

	chat := &models.Chat{
		ID:      uuid.NewString(),
		Owner:   owner,
		Title:   title,
		History: history,
		Context: docContext,
	}
	if err := s.db.Create(chat).Error; err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	return chat.ID, nil
}

// UpdateMessages replaces the full message list for a chat in one write.
func (s *DefaultChatStore) UpdateMessages(chatID string, messages []models.Message) error {
	history, err := models.EncodeMessages(messages)
	if err != nil {
		return err
	}

	result := s.db.Model(&models.Chat{}).Where("id = ?", chatID).Update("history", history)
	if result.Error != nil {
		return fmt.Errorf("failed to update chat history: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// GetChat retrieves the full chat record.
func (s *DefaultChatStore) GetChat(chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.db.Where("id = ?", chatID).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

// ListChatsByOwner returns the (id, title) pairs for all of a user's chats.
func (s *DefaultChatStore) ListChatsByOwner(owner string) ([]models.ChatSummary, error) {
	var summaries []models.ChatSummary
	err := s.db.Model(&models.Chat{}).
		Select("id, title").
		Where("owner = ?", owner).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return summaries, nil
}
