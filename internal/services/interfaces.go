package services

import (
	"context"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

// SessionRunner runs fn inside one database session.
// *database.Provider satisfies it.
type SessionRunner interface {
	WithSession(ctx context.Context, fn func(database.Session) error) error
}

// UserFinder resolves the owner of an import.
type UserFinder interface {
	GetByEmail(ctx context.Context, s database.Session, email string) (*entities.User, error)
}

// BookWriter persists a batch of books for one owner.
type BookWriter interface {
	AddMany(ctx context.Context, s database.Session, batch []*entities.Book, userID uint) error
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	Sheet          string `json:"sheet"`
	BooksProcessed int    `json:"books_processed"`
}
