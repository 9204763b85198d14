package wsocket

import (
	"context"
	"encoding/json"
	"net/http"

	"barnaby_go_backend/internal/models"
	"barnaby_go_backend/internal/notify"
	"barnaby_go_backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler serves the WebSocket event surface of the chat UI: the client sends
// ask / new_chat / switch_chat events and receives complete answers plus
// chat-list change notifications. Answers are sent whole, not streamed.
type Handler struct {
	sessionService *services.ChatSessionService
	notifier       *notify.Notifier
	upgrader       websocket.Upgrader
}

// Message is the JSON envelope for both directions of the socket.
type Message struct {
	Type     string           `json:"type"`
	Content  string           `json:"content,omitempty"`
	ChatID   string           `json:"chatId,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
}

func NewHandler(sessionService *services.ChatSessionService, notifier *notify.Notifier, upgrader websocket.Upgrader) *Handler {
	return &Handler{
		sessionService: sessionService,
		notifier:       notifier,
		upgrader:       upgrader,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.sessionService.Session(username)

	events := h.notifier.Subscribe(username)
	defer h.notifier.Unsubscribe(username, events)

	// Writes are funneled through one channel; gorilla connections do not
	// allow concurrent writers.
	outbound := make(chan Message, 8)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if err := conn.WriteJSON(msg); err != nil {
					log.Error().Err(err).Str("user", username).Msg("Failed to write websocket message")
					cancel()
					return
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				select {
				case outbound <- Message{Type: "chats_changed", Content: string(payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("user", username).Msg("Websocket read ended")
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			outbound <- Message{Type: "error", Content: "Malformed message"}
			continue
		}

		switch msg.Type {
		case "ask":
			answer, err := h.sessionService.AskQuestion(ctx, session, msg.Content)
			if err != nil {
				outbound <- Message{Type: "error", Content: err.Error()}
				continue
			}
			outbound <- Message{Type: "assistant", Content: answer}
		case "new_chat":
			h.sessionService.StartNewChat(session)
			outbound <- Message{Type: "info", Content: "New chat started"}
		case "switch_chat":
			if err := h.sessionService.SwitchToChat(session, msg.ChatID); err != nil {
				outbound <- Message{Type: "error", Content: err.Error()}
				continue
			}
			chatID, messages, _ := session.Snapshot()
			outbound <- Message{Type: "history", ChatID: chatID, Messages: messages}
		default:
			outbound <- Message{Type: "error", Content: "Unknown message type: " + msg.Type}
		}
	}
}
