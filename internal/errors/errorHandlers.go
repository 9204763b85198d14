package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists       ErrorType = "ALREADY_EXISTS"
	ErrorTypeExtractionFailed    ErrorType = "EXTRACTION_FAILED"
	ErrorTypeGenerationFailed    ErrorType = "GENERATION_FAILED"
	ErrorTypeStorageCorruption   ErrorType = "STORAGE_CORRUPTION"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

// newError creates a new CustomError
func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// New400Error creates a new bad request error
func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

// New401Error creates a new unauthorized error
func New401Error(message string) *CustomError {
	return newError(ErrorTypeUnauthorized, message, http.StatusUnauthorized, nil)
}

// New403Error creates a new forbidden error
func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

// New404Error creates a new not found error
func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

// New409Error creates a new already-exists conflict error
func New409Error(message string) *CustomError {
	return newError(ErrorTypeAlreadyExists, message, http.StatusConflict, nil)
}

// NewExtractionError reports a document whose text could not be extracted
func NewExtractionError(internal error) *CustomError {
	return newError(ErrorTypeExtractionFailed, "Failed to extract text from the uploaded document", http.StatusUnprocessableEntity, internal)
}

// NewGenerationError reports an upstream answer-generation failure or timeout
func NewGenerationError(internal error) *CustomError {
	return newError(ErrorTypeGenerationFailed, "Failed to generate an answer", http.StatusBadGateway, internal)
}

// NewCorruptionError reports a stored chat record that failed validation on read
func NewCorruptionError(internal error) *CustomError {
	return newError(ErrorTypeStorageCorruption, "Stored chat record is corrupt", http.StatusInternalServerError, internal)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	var customErr *CustomError
	var ok bool

	if customErr, ok = err.(*CustomError); !ok {
		customErr = New500Error(err)
	}

	// Log internal server errors and corruption
	if customErr.Internal != nil {
		log.Error().
			Err(customErr.Internal).
			Str("type", string(customErr.Type)).
			Str("url", c.Request.URL.String()).
			Msg("Request failed")
	}

	c.JSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}
