package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestLogger(log.Named("http")))
	router.Use(gin.Recovery())

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadAndSave())
	}

	health := NewHealthController(cfg.Health, cfg.Cache, cfg.Version)
	usersController := NewUsersController(cfg.Auth, cfg.SessionManager)
	booksController := NewBooksController(cfg)

	// Health endpoints
	router.GET("/health", health.Status)

	api := router.Group(cfg.APIPrefix)
	api.GET("/ping", Ping)

	// Uploads validate and store through the import service, which opens
	// its own sessions.
	api.POST("/books/upload", booksController.Upload)

	// Every other API route shares one database session per request.
	db := api.Group("", DatabaseSession(cfg.Database))

	db.POST("/users/sign-up", usersController.SignUp)
	db.POST("/users/sign-in", usersController.SignIn)
	api.POST("/users/sign-out", usersController.SignOut)
	api.GET("/users/me", usersController.Me)

	db.POST("/books/add-book", booksController.AddBook)
	db.GET("/books/get-book", booksController.GetBook)
	db.GET("/books/get-user-books", booksController.GetUserBooks)

	return router
}
