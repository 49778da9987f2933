package sessions_test

import (
	"testing"

	sessions "github.com/goliatone/go-sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	// Full cost makes the suite crawl; correctness is cost independent.
	sessions.BcryptCost = bcrypt.MinCost
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := sessions.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = sessions.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := sessions.HashPassword(password)
	require.NoError(t, err)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, sessions.ComparePasswordAndHash(password, hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		err := sessions.ComparePasswordAndHash("wrongPassword", hash)
		assert.ErrorIs(t, err, sessions.ErrMismatchedHashAndPassword)
	})

	t.Run("garbage hash", func(t *testing.T) {
		assert.Error(t, sessions.ComparePasswordAndHash(password, "not-a-hash"))
	})
}

func TestRandomPasswordHash(t *testing.T) {
	first := sessions.RandomPasswordHash()
	second := sessions.RandomPasswordHash()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)

	// Nobody knows the cleartext, so no guess should ever match.
	assert.Error(t, sessions.ComparePasswordAndHash("", first))
	assert.Error(t, sessions.ComparePasswordAndHash("password", first))
}
