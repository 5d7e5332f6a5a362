// Package books provides database operations for book management.
//
// # Usage
//
//	repo := books.NewRepository(provider.Store())
//	err := provider.WithSession(ctx, func(s database.Session) error {
//		list, err := repo.ListByUser(ctx, s, userID)
//		...
//	})
package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book with this name already exists")
)

// Repository handles all book database operations.
type Repository struct {
	store database.Store
}

// NewRepository creates a new books repository.
func NewRepository(store database.Store) *Repository {
	return &Repository{store: store}
}

// Add stores a book owned by userID. The owner must exist; callers check
// that first so a rejected write here means the name is taken.
func (r *Repository) Add(ctx context.Context, s database.Session, book *entities.Book, userID uint) (*entities.Book, error) {
	book.AddedBy = userID
	saved, err := database.Save(ctx, r.store, s, book, true)
	if err != nil {
		if database.IsWriteRejected(err) {
			return nil, fmt.Errorf("%w: %s", ErrBookExists, book.Name)
		}
		return nil, err
	}
	return saved, nil
}

// AddMany stores a batch of books owned by userID in one transaction.
func (r *Repository) AddMany(ctx context.Context, s database.Session, batch []*entities.Book, userID uint) error {
	for _, b := range batch {
		b.AddedBy = userID
	}
	return database.SaveMany(ctx, r.store, s, batch)
}

// GetByName retrieves a book by its unique name.
func (r *Repository) GetByName(ctx context.Context, s database.Session, name string) (*entities.Book, error) {
	book, err := database.FetchOne[entities.Book](ctx, r.store, s, database.Where("Name", name))
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// ListByUser returns every book added by userID, oldest first.
func (r *Repository) ListByUser(ctx context.Context, s database.Session, userID uint) ([]entities.Book, error) {
	return database.FetchMany[entities.Book](ctx, r.store, s, database.Where("AddedBy", userID))
}
