package interfaces

// Compile-time checks that the concrete types satisfy the narrow interfaces
// their consumers declare.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/cli"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/services"
	"github.com/mrlokans/librarian/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var (
	_ http.SessionRunner     = (*database.Provider)(nil)
	_ http.Pinger            = (*database.Provider)(nil)
	_ services.SessionRunner = (*database.Provider)(nil)
)

var (
	_ auth.UserRepository = (*users.Repository)(nil)
	_ http.UserGetter     = (*users.Repository)(nil)
	_ services.UserFinder = (*users.Repository)(nil)
)

var (
	_ http.BookStore      = (*books.Repository)(nil)
	_ services.BookWriter = (*books.Repository)(nil)
)

// =============================================================================
// Services
// =============================================================================

var _ http.Authenticator = (*auth.Service)(nil)

var (
	_ http.BookImporter  = (*services.ImportService)(nil)
	_ cli.BookImporter   = (*services.ImportService)(nil)
	_ tasks.Importer     = (*services.ImportService)(nil)
	_ scheduler.Importer = (*services.ImportService)(nil)
)

// =============================================================================
// Infrastructure
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
