package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// UsersController handles registration and sign-in.
type UsersController struct {
	auth     Authenticator
	sessions *auth.SessionManager
}

// NewUsersController creates a new UsersController. sessions may be nil,
// in which case sign-in only verifies credentials.
func NewUsersController(a Authenticator, sessions *auth.SessionManager) *UsersController {
	return &UsersController{auth: a, sessions: sessions}
}

// SignUp registers a user and returns its public view.
func (uc *UsersController) SignUp(c *gin.Context) {
	var in auth.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := uc.auth.SignUp(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		respondServiceError(c, err, "sign up")
		return
	}
	respondCreated(c, user.Public())
}

// SignIn verifies credentials and starts a cookie session.
func (uc *UsersController) SignIn(c *gin.Context) {
	var in auth.SignInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := uc.auth.SignIn(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		respondServiceError(c, err, "sign in")
		return
	}

	if uc.sessions != nil {
		if err := uc.sessions.CreateSession(c.Request, user); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}
	c.JSON(http.StatusOK, user.Public())
}

// SignOut ends the cookie session.
func (uc *UsersController) SignOut(c *gin.Context) {
	if uc.sessions != nil {
		if err := uc.sessions.DestroySession(c.Request); err != nil {
			respondInternalError(c, err, "destroy session")
			return
		}
	}
	respondSuccess(c, "signed out", nil)
}

// Me returns the signed-in user's email.
func (uc *UsersController) Me(c *gin.Context) {
	if uc.sessions == nil || !uc.sessions.IsAuthenticated(c.Request) {
		respondError(c, http.StatusUnauthorized, "not signed in")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    uc.sessions.GetUserID(c.Request),
		"email": uc.sessions.GetEmail(c.Request),
	})
}
