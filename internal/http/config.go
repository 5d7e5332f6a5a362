package http

import (
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/cache"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database SessionRunner
	Health   Pinger
	Users    UserGetter
	Books    BookStore
	Auth     Authenticator
	Importer BookImporter

	// Sign-in cookie sessions (optional)
	SessionManager *auth.SessionManager

	// Book lookup cache (optional, nil disables)
	Cache *cache.Cache

	// Task queue (optional, uploads are stored inline without it)
	TaskQueue TaskQueue

	// APIPrefix is prepended to every API route, e.g. "/api".
	APIPrefix string

	// UploadDir receives uploaded spreadsheets.
	UploadDir string

	// Application info
	Version string

	Logger *zap.Logger
}
