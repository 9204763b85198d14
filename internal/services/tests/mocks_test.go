package services_test

import (
	"context"

	"barnaby_go_backend/internal/models"
	"barnaby_go_backend/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(data []byte, format services.DocumentFormat) (string, error) {
	args := m.Called(data, format)
	return args.String(0), args.Error(1)
}

type MockGroundedGenerator struct {
	mock.Mock
}

func (m *MockGroundedGenerator) GenerateGrounded(ctx context.Context, question, docContext string) (string, error) {
	args := m.Called(ctx, question, docContext)
	return args.String(0), args.Error(1)
}

type MockOpenGenerator struct {
	mock.Mock
}

func (m *MockOpenGenerator) GenerateOpen(ctx context.Context, history []models.Message) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) CreateChat(owner, title string, messages []models.Message, docContext *string) (string, error) {
	args := m.Called(owner, title, messages, docContext)
	return args.String(0), args.Error(1)
}

func (m *MockChatStore) UpdateMessages(chatID string, messages []models.Message) error {
	args := m.Called(chatID, messages)
	return args.Error(0)
}

func (m *MockChatStore) GetChat(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatStore) ListChatsByOwner(owner string) ([]models.ChatSummary, error) {
	args := m.Called(owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatSummary), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(username, passwordDigest string) error {
	args := m.Called(username, passwordDigest)
	return args.Error(0)
}

func (m *MockUserStore) VerifyUser(username, passwordDigest string) (bool, error) {
	args := m.Called(username, passwordDigest)
	return args.Bool(0), args.Error(1)
}
