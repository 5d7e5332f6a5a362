// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(provider.Store())
//	err := provider.WithSession(ctx, func(s database.Session) error {
//		user, err := repo.GetByEmail(ctx, s, "a@x.com")
//		...
//	})
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")
)

// Repository handles all user database operations.
type Repository struct {
	store database.Store
}

// NewRepository creates a new users repository.
func NewRepository(store database.Store) *Repository {
	return &Repository{store: store}
}

// Create stores a new user and returns it with its store-assigned fields.
// A unique index hit on the email maps to ErrUserExists.
func (r *Repository) Create(ctx context.Context, s database.Session, user *entities.User) (*entities.User, error) {
	saved, err := database.Save(ctx, r.store, s, user, true)
	if err != nil {
		if database.IsWriteRejected(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return nil, err
	}
	return saved, nil
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(ctx context.Context, s database.Session, email string) (*entities.User, error) {
	return r.get(ctx, s, database.Where("Email", email))
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, s database.Session, id uint) (*entities.User, error) {
	return r.get(ctx, s, database.Where("ID", id))
}

// Exists reports whether a user with this email is registered.
func (r *Repository) Exists(ctx context.Context, s database.Session, email string) (bool, error) {
	return r.store.FetchOne(ctx, s, &entities.User{}, database.Where("Email", email))
}

func (r *Repository) get(ctx context.Context, s database.Session, filter database.Filter) (*entities.User, error) {
	user, err := database.FetchOne[entities.User](ctx, r.store, s, filter)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
