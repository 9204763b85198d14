package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"barnaby_go_backend/internal/auth"
	apperrors "barnaby_go_backend/internal/errors"
	"barnaby_go_backend/internal/models"
	"barnaby_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, sessionService *services.ChatSessionService, authService *auth.Service) {
	api := r.Group("/api", auth.Middleware(authService))
	{
		api.POST("/documents", uploadDocumentHandler(sessionService))
		api.POST("/chat/new", newChatHandler(sessionService))
		api.POST("/chat/ask", askQuestionHandler(sessionService))
		api.POST("/chats/:id/switch", switchChatHandler(sessionService))
		api.GET("/chats", listChatsHandler(sessionService))
		api.GET("/session", sessionStateHandler(sessionService))
		api.POST("/logout", logoutHandler(sessionService))
	}
}

// respondServiceError converts service-layer sentinels into the API error
// taxonomy. Everything unrecognized is an internal error.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		apperrors.HandleError(c, apperrors.New404Error("Chat not found"))
	case errors.Is(err, services.ErrUserAlreadyExists):
		apperrors.HandleError(c, apperrors.New409Error("Username already exists"))
	case errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrEmptyDocument),
		errors.Is(err, services.ErrUnsupportedFormat):
		apperrors.HandleError(c, apperrors.New400Error(err.Error()))
	case errors.Is(err, services.ErrExtractionFailed):
		apperrors.HandleError(c, apperrors.NewExtractionError(err))
	case errors.Is(err, services.ErrGenerationFailed):
		apperrors.HandleError(c, apperrors.NewGenerationError(err))
	case errors.Is(err, models.ErrCorruptHistory):
		apperrors.HandleError(c, apperrors.NewCorruptionError(err))
	default:
		apperrors.HandleError(c, err)
	}
}

func sessionFor(c *gin.Context, sessionService *services.ChatSessionService) (*services.ActiveSession, bool) {
	username, ok := auth.Username(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error("User not found in context"))
		return nil, false
	}
	return sessionService.Session(username), true
}

func uploadDocumentHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFor(c, sessionService)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("document")
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("A document file is required"))
			return
		}

		declaredType := c.PostForm("type")
		if declaredType == "" {
			declaredType = strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
		}

		file, err := fileHeader.Open()
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		chatID, err := sessionService.UploadDocument(
			c.Request.Context(),
			session,
			fileHeader.Filename,
			data,
			services.DocumentFormat(strings.ToLower(declaredType)),
		)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		_, messages, hasContext := session.Snapshot()
		c.JSON(http.StatusCreated, gin.H{
			"chat_id":     chatID,
			"messages":    messages,
			"has_context": hasContext,
		})
	}
}

func newChatHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFor(c, sessionService)
		if !ok {
			return
		}

		sessionService.StartNewChat(session)
		c.JSON(http.StatusOK, gin.H{"message": "New chat started"})
	}
}

func askQuestionHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFor(c, sessionService)
		if !ok {
			return
		}

		var request struct {
			Question string `json:"question" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("A question is required"))
			return
		}

		answer, err := sessionService.AskQuestion(c.Request.Context(), session, request.Question)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"answer": answer})
	}
}

func switchChatHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFor(c, sessionService)
		if !ok {
			return
		}

		if err := sessionService.SwitchToChat(session, c.Param("id")); err != nil {
			respondServiceError(c, err)
			return
		}

		chatID, messages, hasContext := session.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"chat_id":     chatID,
			"messages":    messages,
			"has_context": hasContext,
		})
	}
}

func listChatsHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := auth.Username(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error("User not found in context"))
			return
		}

		chats, err := sessionService.ListChats(username)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if chats == nil {
			chats = []models.ChatSummary{}
		}

		c.JSON(http.StatusOK, gin.H{"chats": chats})
	}
}

func sessionStateHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFor(c, sessionService)
		if !ok {
			return
		}

		chatID, messages, hasContext := session.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"chat_id":     chatID,
			"messages":    messages,
			"has_context": hasContext,
		})
	}
}

func logoutHandler(sessionService *services.ChatSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := auth.Username(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error("User not found in context"))
			return
		}

		sessionService.DropSession(username)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
