package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "validpassword123",
		},
		{
			name:     "password too short",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "password at minimum length",
			password: "12345678",
		},
		{
			name:     "password too long",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "password at maximum length",
			password: strings.Repeat("a", 72),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, bcrypt.MinCost)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correcthorse", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("correcthorse", hash))
	assert.ErrorIs(t, CheckPassword("wronghorse", hash), ErrInvalidPassword)
	assert.Error(t, CheckPassword("correcthorse", []byte("not a hash")))
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	first, err := HashPassword("samepassword", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("samepassword", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
