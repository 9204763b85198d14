package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"barnaby_go_backend/internal/models"
	"barnaby_go_backend/internal/notify"

	"github.com/rs/zerolog/log"
)

// ActiveSession is the in-memory conversation state for one logged-in user.
// ChatID is empty while the session has never been saved; Context is empty
// when no document grounds the conversation. Unsaved exchanges (no ChatID)
// are intentionally not durable.
type ActiveSession struct {
	mu       sync.Mutex
	Username string
	ChatID   string
	Messages []models.Message
	Context  string
}

// Snapshot returns a consistent copy of the session state.
func (s *ActiveSession) Snapshot() (chatID string, messages []models.Message, hasContext bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ChatID, append([]models.Message(nil), s.Messages...), s.Context != ""
}

// ChatSessionService is the single authority over what the current
// conversation is and what grounds it. All collaborators are injected; the
// service holds no store handle of its own beyond the ChatStore capability.
type ChatSessionService struct {
	extractor  TextExtractor
	grounded   GroundedGenerator
	open       OpenGenerator
	chats      ChatStore
	notifier   *notify.Notifier
	genTimeout time.Duration
	sessions   sync.Map // username -> *ActiveSession
}

func NewChatSessionService(
	extractor TextExtractor,
	grounded GroundedGenerator,
	open OpenGenerator,
	chats ChatStore,
	notifier *notify.Notifier,
	genTimeout time.Duration,
) *ChatSessionService {
	return &ChatSessionService{
		extractor:  extractor,
		grounded:   grounded,
		open:       open,
		chats:      chats,
		notifier:   notifier,
		genTimeout: genTimeout,
	}
}

// Session returns the active session for a user, creating it on first use.
func (css *ChatSessionService) Session(username string) *ActiveSession {
	existing, _ := css.sessions.LoadOrStore(username, &ActiveSession{Username: username})
	return existing.(*ActiveSession)
}

// DropSession discards a user's in-memory state, typically on logout.
func (css *ChatSessionService) DropSession(username string) {
	css.sessions.Delete(username)
}

// StartNewChat resets the session to an empty, unsaved conversation. It never
// touches the store; the previous chat, if saved, keeps its last flushed
// state. Idempotent.
func (css *ChatSessionService) StartNewChat(session *ActiveSession) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.ChatID = ""
	session.Messages = nil
	session.Context = ""
}

// UploadDocument extracts text from an uploaded file, seeds the greeting, and
// creates the backing Chat record. The contract is all-or-nothing: if
// extraction or the store write fails, the session is left exactly as it was
// and no Chat row exists.
func (css *ChatSessionService) UploadDocument(ctx context.Context, session *ActiveSession, fileName string, data []byte, format DocumentFormat) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if format != FormatPDF && format != FormatDocx && format != FormatPptx {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	text, err := css.extractor.Extract(data, format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	greeting := models.Message{
		Role:    models.RoleAssistant,
		Content: fmt.Sprintf("Hey there! You've uploaded %s. What would you like to know about this document?", fileName),
	}
	title := fmt.Sprintf("Chat about %s", fileName)

	chatID, err := css.chats.CreateChat(session.Username, title, []models.Message{greeting}, &text)
	if err != nil {
		return "", fmt.Errorf("failed to save chat: %w", err)
	}

	session.mu.Lock()
	session.ChatID = chatID
	session.Messages = []models.Message{greeting}
	session.Context = text
	session.mu.Unlock()

	css.notifier.Publish(session.Username, notify.Event{Kind: notify.ChatCreated, ChatID: chatID, Title: title})
	log.Info().Str("user", session.Username).Str("chat_id", chatID).Str("file", fileName).Msg("Document uploaded, chat created")

	return chatID, nil
}

// SwitchToChat loads a saved chat into the session. The replacement is atomic
// from the caller's point of view: the new state is assembled first and
// assigned in one step, so a failed load leaves the prior state fully intact.
func (css *ChatSessionService) SwitchToChat(session *ActiveSession, chatID string) error {
	chat, err := css.chats.GetChat(chatID)
	if err != nil {
		return err
	}
	if chat.Owner != session.Username {
		// Foreign chats are indistinguishable from absent ones.
		return ErrChatNotFound
	}

	messages, err := models.DecodeMessages(chat.History)
	if err != nil {
		return err
	}
	docContext := ""
	if chat.Context != nil {
		docContext = *chat.Context
	}

	session.mu.Lock()
	session.ChatID = chat.ID
	session.Messages = messages
	session.Context = docContext
	session.mu.Unlock()

	return nil
}

// AskQuestion appends the user's question, routes it to the grounded generator
// when a document context is bound and to the open generator otherwise, then
// appends the reply and flushes to the store when the session is saved.
//
// On generation failure the user message stays appended, no reply is added,
// and nothing is flushed, so the store keeps its last-known-good state.
func (css *ChatSessionService) AskQuestion(ctx context.Context, session *ActiveSession, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	session.Messages = append(session.Messages, models.Message{Role: models.RoleUser, Content: question})

	genCtx, cancel := context.WithTimeout(ctx, css.genTimeout)
	defer cancel()

	var answer string
	var err error
	if session.Context != "" {
		answer, err = css.grounded.GenerateGrounded(genCtx, question, session.Context)
	} else {
		history := append([]models.Message(nil), session.Messages...)
		answer, err = css.open.GenerateOpen(genCtx, history)
	}
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("generation timed out: %v", err)
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	session.Messages = append(session.Messages, models.Message{Role: models.RoleAssistant, Content: answer})

	if session.ChatID != "" {
		if err := css.chats.UpdateMessages(session.ChatID, session.Messages); err != nil {
			return "", fmt.Errorf("failed to persist chat history: %w", err)
		}
	}

	return answer, nil
}

// ListChats returns the (id, title) pairs of every chat the user owns.
func (css *ChatSessionService) ListChats(username string) ([]models.ChatSummary, error) {
	return css.chats.ListChatsByOwner(username)
}
