package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"barnaby_go_backend/internal/models"
	"barnaby_go_backend/internal/notify"
	"barnaby_go_backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(
	extractor *MockTextExtractor,
	grounded *MockGroundedGenerator,
	open *MockOpenGenerator,
	chats *MockChatStore,
) (*services.ChatSessionService, *notify.Notifier) {
	notifier := notify.NewNotifier()
	svc := services.NewChatSessionService(extractor, grounded, open, chats, notifier, 30*time.Second)
	return svc, notifier
}

func TestUploadDocument(t *testing.T) {
	data := []byte("%PDF-1.4 fake bytes")
	extracted := "Revenue grew 10%."

	t.Run("Successful upload seeds greeting and creates chat", func(t *testing.T) {
		mockExtractor := new(MockTextExtractor)
		mockGrounded := new(MockGroundedGenerator)
		mockOpen := new(MockOpenGenerator)
		mockChats := new(MockChatStore)
		svc, notifier := newTestService(mockExtractor, mockGrounded, mockOpen, mockChats)

		events := notifier.Subscribe("alice")
		defer notifier.Unsubscribe("alice", events)

		mockExtractor.On("Extract", data, services.FormatPDF).Return(extracted, nil).Once()
		mockChats.On("CreateChat",
			"alice",
			"Chat about report.pdf",
			mock.MatchedBy(func(messages []models.Message) bool {
				return len(messages) == 1 &&
					messages[0].Role == models.RoleAssistant &&
					messages[0].Content == "Hey there! You've uploaded report.pdf. What would you like to know about this document?"
			}),
			mock.MatchedBy(func(docContext *string) bool {
				return docContext != nil && *docContext == extracted
			}),
		).Return("chat-1", nil).Once()

		session := svc.Session("alice")
		chatID, err := svc.UploadDocument(context.Background(), session, "report.pdf", data, services.FormatPDF)

		require.NoError(t, err)
		assert.Equal(t, "chat-1", chatID)

		gotChatID, messages, hasContext := session.Snapshot()
		assert.Equal(t, "chat-1", gotChatID)
		require.Len(t, messages, 1)
		assert.Equal(t, models.RoleAssistant, messages[0].Role)
		assert.Contains(t, messages[0].Content, "report.pdf")
		assert.True(t, hasContext)

		select {
		case event := <-events:
			assert.Equal(t, notify.ChatCreated, event.Kind)
			assert.Equal(t, "chat-1", event.ChatID)
		default:
			t.Fatal("expected a chat_created notification")
		}

		mockExtractor.AssertExpectations(t)
		mockChats.AssertExpectations(t)
	})

	t.Run("Extraction failure leaves session untouched and persists nothing", func(t *testing.T) {
		mockExtractor := new(MockTextExtractor)
		mockChats := new(MockChatStore)
		svc, _ := newTestService(mockExtractor, new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		mockExtractor.On("Extract", data, services.FormatPDF).Return("", fmt.Errorf("unreadable file")).Once()

		session := svc.Session("alice")
		_, err := svc.UploadDocument(context.Background(), session, "report.pdf", data, services.FormatPDF)

		assert.ErrorIs(t, err, services.ErrExtractionFailed)
		chatID, messages, hasContext := session.Snapshot()
		assert.Empty(t, chatID)
		assert.Empty(t, messages)
		assert.False(t, hasContext)
		mockChats.AssertNotCalled(t, "CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Store failure leaves session untouched", func(t *testing.T) {
		mockExtractor := new(MockTextExtractor)
		mockChats := new(MockChatStore)
		svc, _ := newTestService(mockExtractor, new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		mockExtractor.On("Extract", data, services.FormatPDF).Return(extracted, nil).Once()
		mockChats.On("CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("connection refused")).Once()

		session := svc.Session("alice")
		_, err := svc.UploadDocument(context.Background(), session, "report.pdf", data, services.FormatPDF)

		assert.Error(t, err)
		chatID, messages, hasContext := session.Snapshot()
		assert.Empty(t, chatID)
		assert.Empty(t, messages)
		assert.False(t, hasContext)
	})

	t.Run("Empty file is rejected", func(t *testing.T) {
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), new(MockChatStore))
		session := svc.Session("alice")
		_, err := svc.UploadDocument(context.Background(), session, "report.pdf", nil, services.FormatPDF)
		assert.ErrorIs(t, err, services.ErrEmptyDocument)
	})

	t.Run("Unknown declared type is rejected", func(t *testing.T) {
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), new(MockChatStore))
		session := svc.Session("alice")
		_, err := svc.UploadDocument(context.Background(), session, "notes.txt", data, services.DocumentFormat("txt"))
		assert.ErrorIs(t, err, services.ErrUnsupportedFormat)
	})
}

func TestAskQuestionRouting(t *testing.T) {
	t.Run("Context present routes to grounded generator only", func(t *testing.T) {
		mockGrounded := new(MockGroundedGenerator)
		mockOpen := new(MockOpenGenerator)
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), mockGrounded, mockOpen, mockChats)

		session := svc.Session("alice")
		session.ChatID = "chat-1"
		session.Context = "Revenue grew 10%."
		session.Messages = []models.Message{{Role: models.RoleAssistant, Content: "Hey there!"}}

		mockGrounded.On("GenerateGrounded", mock.Anything, "What was revenue growth?", "Revenue grew 10%.").
			Return("Revenue grew by 10 percent.", nil).Once()
		mockChats.On("UpdateMessages", "chat-1", mock.MatchedBy(func(messages []models.Message) bool {
			return len(messages) == 3 &&
				messages[1].Role == models.RoleUser &&
				messages[2].Role == models.RoleAssistant &&
				messages[2].Content == "Revenue grew by 10 percent."
		})).Return(nil).Once()

		answer, err := svc.AskQuestion(context.Background(), session, "What was revenue growth?")

		require.NoError(t, err)
		assert.Equal(t, "Revenue grew by 10 percent.", answer)
		mockGrounded.AssertExpectations(t)
		mockChats.AssertExpectations(t)
		mockOpen.AssertNotCalled(t, "GenerateOpen", mock.Anything, mock.Anything)
	})

	t.Run("No context routes to open generator with full history", func(t *testing.T) {
		mockGrounded := new(MockGroundedGenerator)
		mockOpen := new(MockOpenGenerator)
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), mockGrounded, mockOpen, mockChats)

		session := svc.Session("bob")
		svc.StartNewChat(session)

		mockOpen.On("GenerateOpen", mock.Anything, mock.MatchedBy(func(history []models.Message) bool {
			return len(history) == 1 &&
				history[0].Role == models.RoleUser &&
				history[0].Content == "Hello"
		})).Return("Hi! How can I help?", nil).Once()

		answer, err := svc.AskQuestion(context.Background(), session, "Hello")

		require.NoError(t, err)
		assert.Equal(t, "Hi! How can I help?", answer)

		// Never saved, so never flushed: unsaved conversations are not durable.
		chatID, messages, _ := session.Snapshot()
		assert.Empty(t, chatID)
		assert.Len(t, messages, 2)
		mockChats.AssertNotCalled(t, "UpdateMessages", mock.Anything, mock.Anything)
		mockGrounded.AssertNotCalled(t, "GenerateGrounded", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Empty question is rejected before any adapter call", func(t *testing.T) {
		mockGrounded := new(MockGroundedGenerator)
		mockOpen := new(MockOpenGenerator)
		svc, _ := newTestService(new(MockTextExtractor), mockGrounded, mockOpen, new(MockChatStore))

		session := svc.Session("bob")
		_, err := svc.AskQuestion(context.Background(), session, "   ")

		assert.ErrorIs(t, err, services.ErrEmptyQuestion)
		mockGrounded.AssertNotCalled(t, "GenerateGrounded", mock.Anything, mock.Anything, mock.Anything)
		mockOpen.AssertNotCalled(t, "GenerateOpen", mock.Anything, mock.Anything)
	})
}

func TestAskQuestionGenerationFailure(t *testing.T) {
	mockGrounded := new(MockGroundedGenerator)
	mockChats := new(MockChatStore)
	svc, _ := newTestService(new(MockTextExtractor), mockGrounded, new(MockOpenGenerator), mockChats)

	session := svc.Session("alice")
	session.ChatID = "chat-1"
	session.Context = "Revenue grew 10%."
	session.Messages = []models.Message{{Role: models.RoleAssistant, Content: "Hey there!"}}

	mockGrounded.On("GenerateGrounded", mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("upstream timeout")).Once()

	_, err := svc.AskQuestion(context.Background(), session, "What was revenue growth?")

	assert.ErrorIs(t, err, services.ErrGenerationFailed)

	// The user's own message stays; no reply is appended and nothing is
	// flushed, so the store keeps its last-known-good state.
	_, messages, _ := session.Snapshot()
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[1].Role)
	mockChats.AssertNotCalled(t, "UpdateMessages", mock.Anything, mock.Anything)
}

func TestAskQuestionMessageCount(t *testing.T) {
	mockOpen := new(MockOpenGenerator)
	svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), mockOpen, new(MockChatStore))

	session := svc.Session("bob")

	mockOpen.On("GenerateOpen", mock.Anything, mock.Anything).Return("answer", nil).Times(3)
	mockOpen.On("GenerateOpen", mock.Anything, mock.Anything).Return("", fmt.Errorf("quota")).Once()

	for i := 0; i < 3; i++ {
		_, err := svc.AskQuestion(context.Background(), session, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}
	_, err := svc.AskQuestion(context.Background(), session, "one more")
	require.Error(t, err)

	// Three successful exchanges contribute two messages each; the failed
	// call contributes only the user message.
	_, messages, _ := session.Snapshot()
	assert.Len(t, messages, 7)
}

func TestSwitchToChat(t *testing.T) {
	history, err := models.EncodeMessages([]models.Message{
		{Role: models.RoleAssistant, Content: "Hey there! You've uploaded report.pdf. What would you like to know about this document?"},
		{Role: models.RoleUser, Content: "Summarize it."},
		{Role: models.RoleAssistant, Content: "Revenue grew 10%."},
	})
	require.NoError(t, err)
	docContext := "Revenue grew 10%."

	savedChat := &models.Chat{
		ID:      "chat-1",
		Owner:   "alice",
		Title:   "Chat about report.pdf",
		History: history,
		Context: &docContext,
	}

	t.Run("Loads messages and context, idempotent on repeat", func(t *testing.T) {
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		mockChats.On("GetChat", "chat-1").Return(savedChat, nil).Twice()

		session := svc.Session("alice")
		require.NoError(t, svc.SwitchToChat(session, "chat-1"))
		chatID1, messages1, hasContext1 := session.Snapshot()

		require.NoError(t, svc.SwitchToChat(session, "chat-1"))
		chatID2, messages2, hasContext2 := session.Snapshot()

		assert.Equal(t, chatID1, chatID2)
		assert.Equal(t, messages1, messages2)
		assert.Equal(t, hasContext1, hasContext2)
		assert.Len(t, messages1, 3)
		assert.True(t, hasContext1)
	})

	t.Run("Foreign chat reads as not found and session is unchanged", func(t *testing.T) {
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		mockChats.On("GetChat", "chat-1").Return(savedChat, nil).Once()

		session := svc.Session("mallory")
		session.Messages = []models.Message{{Role: models.RoleUser, Content: "my own note"}}

		err := svc.SwitchToChat(session, "chat-1")
		assert.ErrorIs(t, err, services.ErrChatNotFound)

		_, messages, _ := session.Snapshot()
		require.Len(t, messages, 1)
		assert.Equal(t, "my own note", messages[0].Content)
	})

	t.Run("Missing chat reads as not found", func(t *testing.T) {
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		mockChats.On("GetChat", "no-such-id").Return(nil, services.ErrChatNotFound).Once()

		session := svc.Session("alice")
		err := svc.SwitchToChat(session, "no-such-id")
		assert.ErrorIs(t, err, services.ErrChatNotFound)
	})

	t.Run("Corrupt stored history fails closed", func(t *testing.T) {
		mockChats := new(MockChatStore)
		svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

		corrupt := &models.Chat{ID: "chat-2", Owner: "alice", History: []byte("[{'role': 'user', 'content': 'hi'}]")}
		mockChats.On("GetChat", "chat-2").Return(corrupt, nil).Once()

		session := svc.Session("alice")
		err := svc.SwitchToChat(session, "chat-2")
		assert.ErrorIs(t, err, models.ErrCorruptHistory)

		chatID, _, _ := session.Snapshot()
		assert.Empty(t, chatID)
	})
}

func TestStartNewChat(t *testing.T) {
	mockChats := new(MockChatStore)
	svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

	session := svc.Session("alice")
	session.ChatID = "chat-1"
	session.Context = "Revenue grew 10%."
	session.Messages = []models.Message{{Role: models.RoleAssistant, Content: "Hey there!"}}

	svc.StartNewChat(session)
	svc.StartNewChat(session) // idempotent

	chatID, messages, hasContext := session.Snapshot()
	assert.Empty(t, chatID)
	assert.Empty(t, messages)
	assert.False(t, hasContext)

	// Discarding is purely in-memory.
	mockChats.AssertNotCalled(t, "UpdateMessages", mock.Anything, mock.Anything)
	mockChats.AssertNotCalled(t, "CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListChats(t *testing.T) {
	mockChats := new(MockChatStore)
	svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), mockChats)

	summaries := []models.ChatSummary{
		{ID: "chat-1", Title: "Chat about report.pdf"},
		{ID: "chat-2", Title: "Chat about deck.pptx"},
	}
	mockChats.On("ListChatsByOwner", "alice").Return(summaries, nil).Once()

	got, err := svc.ListChats("alice")
	require.NoError(t, err)
	assert.Equal(t, summaries, got)
}

func TestSessionRegistry(t *testing.T) {
	svc, _ := newTestService(new(MockTextExtractor), new(MockGroundedGenerator), new(MockOpenGenerator), new(MockChatStore))

	first := svc.Session("alice")
	second := svc.Session("alice")
	assert.Same(t, first, second)

	first.ChatID = "chat-1"
	svc.DropSession("alice")

	fresh := svc.Session("alice")
	chatID, _, _ := fresh.Snapshot()
	assert.Empty(t, chatID)
}
