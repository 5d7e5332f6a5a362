package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/services"
)

// Each controller depends on the narrow interface it needs. Every method
// that touches the store takes the request's database.Session.

// SessionRunner opens one database session around fn.
type SessionRunner interface {
	WithSession(ctx context.Context, fn func(database.Session) error) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserGetter resolves users by email.
type UserGetter interface {
	GetByEmail(ctx context.Context, s database.Session, email string) (*entities.User, error)
}

// BookStore reads and writes books.
type BookStore interface {
	Add(ctx context.Context, s database.Session, book *entities.Book, userID uint) (*entities.Book, error)
	GetByName(ctx context.Context, s database.Session, name string) (*entities.Book, error)
	ListByUser(ctx context.Context, s database.Session, userID uint) ([]entities.Book, error)
}

// Authenticator registers users and checks credentials.
type Authenticator interface {
	SignUp(ctx context.Context, s database.Session, in auth.SignUpInput) (*entities.User, error)
	SignIn(ctx context.Context, s database.Session, in auth.SignInInput) (*entities.User, error)
}

// BookImporter validates spreadsheets and stores validated batches.
type BookImporter interface {
	Validate(ctx context.Context, path, email string) (*services.Batch, error)
	Store(ctx context.Context, batch *services.Batch) error
}

// TaskQueue enqueues background tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}
