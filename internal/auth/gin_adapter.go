package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// cookieWriter commits the session and writes its cookie right before the
// response headers go out; after that cookies can no longer be set.
type cookieWriter struct {
	gin.ResponseWriter
	sm      *SessionManager
	request *http.Request
	done    bool
}

func (w *cookieWriter) WriteHeader(code int) {
	w.flushCookie()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.flushCookie()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.Write(b)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.WriteString(s)
}

func (w *cookieWriter) flushCookie() {
	if w.done {
		return
	}
	w.done = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

// LoadAndSave is the gin form of scs LoadAndSave. It must run before any
// handler touches the session.
func (sm *SessionManager) LoadAndSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &cookieWriter{ResponseWriter: c.Writer, sm: sm, request: c.Request}
		c.Writer = w
		c.Next()

		w.flushCookie()
	}
}
