package services

import (
	"context"
	"errors"

	"barnaby_go_backend/internal/models"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrUserAlreadyExists  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrEmptyDocument      = errors.New("document is empty")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrExtractionFailed   = errors.New("document extraction failed")
	ErrGenerationFailed   = errors.New("answer generation failed")
)

// DocumentFormat is the declared type of an uploaded document.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDocx DocumentFormat = "docx"
	FormatPptx DocumentFormat = "pptx"
)

// TextExtractor turns raw document bytes into plain text.
type TextExtractor interface {
	Extract(data []byte, format DocumentFormat) (string, error)
}

// GroundedGenerator answers a question against a fixed document context.
type GroundedGenerator interface {
	GenerateGrounded(ctx context.Context, question, docContext string) (string, error)
}

// OpenGenerator answers from the full conversation history, no document
// context involved.
type OpenGenerator interface {
	GenerateOpen(ctx context.Context, history []models.Message) (string, error)
}

// ChatStore is the durable chat-record contract.
type ChatStore interface {
	CreateChat(owner, title string, messages []models.Message, docContext *string) (string, error)
	UpdateMessages(chatID string, messages []models.Message) error
	GetChat(chatID string) (*models.Chat, error)
	ListChatsByOwner(owner string) ([]models.ChatSummary, error)
}

// UserStore owns account creation and credential verification.
type UserStore interface {
	CreateUser(username, passwordDigest string) error
	VerifyUser(username, passwordDigest string) (bool, error)
}
