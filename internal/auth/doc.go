// Package auth provides user registration and sign-in.
//
// Passwords are hashed with bcrypt. A successful sign-in starts a cookie
// session backed by scs; the session store lives in the main database when
// it is sqlite and in memory otherwise.
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h    # Session duration
//	AUTH_BCRYPT_COST=12          # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true     # HTTPS-only cookies
//
// # Usage
//
//	service := auth.NewService(users.NewRepository(provider.Store()), cfg.Auth)
//	err := provider.WithSession(ctx, func(s database.Session) error {
//		user, err := service.SignUp(ctx, s, input)
//		...
//	})
package auth
