package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionRouter(sm *SessionManager) *gin.Engine {
	r := gin.New()
	r.Use(sm.LoadAndSave())
	r.POST("/login", func(c *gin.Context) {
		user := &entities.User{ID: 7, Email: "ada@example.com"}
		if err := sm.CreateSession(c.Request, user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", func(c *gin.Context) {
		if !sm.IsAuthenticated(c.Request) {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": sm.GetUserID(c.Request), "email": sm.GetEmail(c.Request)})
	})
	r.POST("/logout", func(c *gin.Context) {
		_ = sm.DestroySession(c.Request)
		c.Status(http.StatusNoContent)
	})
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func testSessionLifecycle(t *testing.T, sm *SessionManager) {
	router := newSessionRouter(sm)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"email":"ada@example.com"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "", sessionCookie(t, w).Value)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionManager_SQLiteStore(t *testing.T) {
	provider, err := database.NewProvider(context.Background(), database.Config{
		URL:  "sqlite:///" + filepath.Join(t.TempDir(), "sessions.db"),
		Pool: database.PoolConfig{MaxSize: 2},
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	sm, err := NewSessionManager(provider.SQLDB(), config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)

	testSessionLifecycle(t, sm)
}

func TestSessionManager_MemoryStore(t *testing.T) {
	sm, err := NewSessionManager(nil, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)

	testSessionLifecycle(t, sm)
}
