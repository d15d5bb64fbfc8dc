package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
		wantErr  bool
	}{
		{"", StrategyBcrypt, false},
		{"bcrypt", StrategyBcrypt, false},
		{" Plain ", StrategyPlain, false},
		{"sha1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			a, err := New(tt.strategy, bcrypt.MinCost)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Name())
		})
	}
}

func TestNew_CostOutOfRange(t *testing.T) {
	a, err := New("bcrypt", 99)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, a.(Bcrypt).Cost)
}

func TestStrategies(t *testing.T) {
	for _, a := range []Authenticator{Plain{}, Bcrypt{Cost: bcrypt.MinCost}} {
		t.Run(a.Name(), func(t *testing.T) {
			stored, err := a.Hash("s3cret-pass")
			require.NoError(t, err)

			assert.True(t, a.Authenticate(stored, "s3cret-pass"))
			assert.False(t, a.Authenticate(stored, "S3cret-pass"))
			assert.False(t, a.Authenticate(stored, ""))
		})
	}
}

func TestBcrypt_DoesNotStorePlaintext(t *testing.T) {
	stored, err := Bcrypt{Cost: bcrypt.MinCost}.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored)
	assert.False(t, Plain{}.Authenticate(stored, "s3cret-pass"))
}
