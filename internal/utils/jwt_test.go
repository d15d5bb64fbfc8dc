package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
    at, err := NewAccessToken("secret", 42, "sara@example.com", 15)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(15*time.Minute), at.Exp, 5*time.Second)

    claims, err := ParseAccessToken("secret", at.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    assert.Equal(t, uint64(42), id)
    assert.Equal(t, "sara@example.com", claims.Email)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    good, err := NewAccessToken("secret", 42, "sara@example.com", 15)
    require.NoError(t, err)
    expired, err := NewAccessToken("secret", 42, "sara@example.com", -5)
    require.NoError(t, err)

    none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "sara@example.com"})
    noneSigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)

    tests := map[string]struct{ secret, raw string }{
        "wrong secret": {"other", good.Token},
        "expired":      {"secret", expired.Token},
        "alg none":     {"secret", noneSigned},
        "garbage":      {"secret", "not.a.token"},
    }
    for name, tt := range tests {
        t.Run(name, func(t *testing.T) {
            _, err := ParseAccessToken(tt.secret, tt.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestRefreshToken(t *testing.T) {
    a, err := NewRefreshToken(7)
    require.NoError(t, err)
    b, err := NewRefreshToken(7)
    require.NoError(t, err)

    assert.Len(t, a.Raw, 96)
    assert.NotEqual(t, a.Raw, b.Raw)
    assert.Len(t, HashRefreshRaw(a.Raw), 64)
    assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}
