package services

import (
	"errors"
	"fmt"

	"barnaby_go_backend/internal/models"

	"gorm.io/gorm"
)

// DefaultUserStore implements UserStore over gorm/postgres.
type DefaultUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &DefaultUserStore{db: db}
}

// CreateUser persists a new account. The username primary key backs the
// uniqueness check.
func (s *DefaultUserStore) CreateUser(username, passwordDigest string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return ErrUserAlreadyExists
	}

	user := &models.User{Username: username, PasswordDigest: passwordDigest}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// VerifyUser reports whether the digest matches the stored one. An unknown
// username is a non-match, never an error.
func (s *DefaultUserStore) VerifyUser(username, passwordDigest string) (bool, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return user.PasswordDigest == passwordDigest, nil
}
