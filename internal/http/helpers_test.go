package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/importers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", auth.ErrEmailInvalid, http.StatusBadRequest},
		{"short password", auth.ErrPasswordTooShort, http.StatusBadRequest},
		{"bad row", fmt.Errorf("%w 3: price", importers.ErrInvalidRow), http.StatusBadRequest},
		{"missing sheet", importers.ErrSheetNotFound, http.StatusBadRequest},
		{"wrong password", auth.ErrInvalidPassword, http.StatusUnauthorized},
		{"unknown user", auth.ErrUserNotFound, http.StatusNotFound},
		{"unknown book", books.ErrBookNotFound, http.StatusNotFound},
		{"duplicate user", auth.ErrUserExists, http.StatusConflict},
		{"duplicate book", fmt.Errorf("%w: Dune", books.ErrBookExists), http.StatusConflict},
		{"constraint", &database.OpError{Op: "save", Kind: database.ErrWriteRejected, Err: errors.New("constraint")}, http.StatusConflict},
		{"connectivity", &database.OpError{Op: "acquire", Kind: database.ErrConnectivity, Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tt.err, "test")

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRespondInternalError_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondInternalError(c, errors.New("password=hunter2"), "test")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestRequireQuery(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?email=ada@example.com", nil)

	v, ok := requireQuery(c, "email")

	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", v)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireQuery_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	_, ok := requireQuery(c, "book_name")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "book_name is required")
}

func TestContextAccessors_OutsideRouter(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.NotNil(t, loggerFrom(c))
	assert.Nil(t, sessionFrom(c))
}
