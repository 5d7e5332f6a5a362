package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

const (
	contextKeyLogger  = "librarian.logger"
	contextKeySession = "librarian.session"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	loggerFrom(c).Error("internal error", zap.String("context", context), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps a service or store error onto a status code.
func respondServiceError(c *gin.Context, err error, context string) {
	switch {
	case auth.IsValidationError(err),
		errors.Is(err, importers.ErrInvalidRow),
		errors.Is(err, importers.ErrSheetNotFound),
		errors.Is(err, importers.ErrUnsupportedFile),
		errors.Is(err, services.ErrEmptyImport):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid email or password", Code: "invalid_credentials"})
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, books.ErrBookNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, auth.ErrUserExists), errors.Is(err, books.ErrBookExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	case database.IsWriteRejected(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "request conflicts with stored data", Code: "conflict"})
	case database.IsRetryable(err):
		loggerFrom(c).Warn("store unavailable", zap.String("context", context), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable", Code: "unavailable"})
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// requireQuery returns a non-empty query parameter or responds with a 400
// error and returns "", false.
func requireQuery(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		respondBadRequest(c, name+" is required")
		return "", false
	}
	return v, true
}

// --- Context Accessors ---

// loggerFrom returns the request logger, or a no-op logger outside the router.
func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(contextKeyLogger); ok {
		if log, ok := v.(*zap.Logger); ok {
			return log
		}
	}
	return zap.NewNop()
}

// sessionFrom returns the database session opened for this request.
func sessionFrom(c *gin.Context) database.Session {
	if v, ok := c.Get(contextKeySession); ok {
		if s, ok := v.(database.Session); ok {
			return s
		}
	}
	return nil
}
