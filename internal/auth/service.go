package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	maxNameLength  = 100
	maxPhoneLength = 16
)

var (
	ErrUserNotFound     = users.ErrUserNotFound
	ErrUserExists       = users.ErrUserExists
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameTooLong      = errors.New("first and last name must be at most 100 characters")
	ErrPhoneInvalid     = errors.New("phone must be at most 16 characters")
)

// UserRepository defines the user data access the service needs.
type UserRepository interface {
	Create(ctx context.Context, s database.Session, user *entities.User) (*entities.User, error)
	GetByEmail(ctx context.Context, s database.Session, email string) (*entities.User, error)
	Exists(ctx context.Context, s database.Session, email string) (bool, error)
}

// SignUpInput is the registration form.
type SignUpInput struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone"`
	Password       string  `json:"password"`
	RepeatPassword string  `json:"repeat_password"`
}

// SignInInput is the login form.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service handles registration and credential checks.
type Service struct {
	users  UserRepository
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(users UserRepository, cfg config.Auth) *Service {
	return &Service{users: users, config: cfg}
}

// SignUp validates the form, hashes the password and stores the user.
func (s *Service) SignUp(ctx context.Context, sess database.Session, in SignUpInput) (*entities.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, sess, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	// A concurrent sign-up with the same email is caught by the unique index.
	return s.users.Create(ctx, sess, &entities.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
	})
}

// SignIn returns the user owning the credentials.
func (s *Service) SignIn(ctx context.Context, sess database.Session, in SignInInput) (*entities.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.users.GetByEmail(ctx, sess, email)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(in.Password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

// IsValidationError reports whether err comes from rejecting user input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmailRequired, ErrEmailInvalid, ErrPasswordRequired, ErrNameTooLong,
		ErrPhoneInvalid, ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateSignUp(in SignUpInput) error {
	if in.Email == "" {
		return ErrEmailRequired
	}
	// RFC 5321 limit is 254
	if len(in.Email) > 254 || !emailPattern.MatchString(in.Email) {
		return ErrEmailInvalid
	}
	if len(in.FirstName) > maxNameLength || len(in.LastName) > maxNameLength {
		return ErrNameTooLong
	}
	if in.Phone != nil && len(*in.Phone) > maxPhoneLength {
		return ErrPhoneInvalid
	}
	if in.Password == "" {
		return ErrPasswordRequired
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if in.Password != in.RepeatPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
