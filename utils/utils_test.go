package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":       "+919876543210",
		"+91 98765 43210":  "+919876543210",
		"919876543210":     "+919876543210",
		"+1 (415) 555-0100": "+14155550100",
		"98-7654-3210":     "+919876543210",
		"4155550100123":    "+914155550100123",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestMobilePattern(t *testing.T) {
	assert.True(t, MobilePattern.MatchString("9876543210"))
	assert.True(t, MobilePattern.MatchString("+919876543210"))
	assert.False(t, MobilePattern.MatchString("0987654321"))
	assert.False(t, MobilePattern.MatchString("12345"))
	assert.False(t, MobilePattern.MatchString("98765abc10"))
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "+91 98765 43210", FormatPhone("9876543210"))
	assert.Equal(t, "+14155550100", FormatPhone("+14155550100"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********3210", MaskPhone("+919876543210"))
	assert.Equal(t, "12", MaskPhone("12"))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, 24*time.Hour)

	access, refresh, err := issuer.GeneratePair(42, "+919876543210")
	require.NoError(t, err)

	claims, err := issuer.Verify(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "+919876543210", claims.MobileNumber)
	assert.Equal(t, AccessToken, claims.TokenType)

	claims, err = issuer.Verify(refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.TokenType)
}

func TestTokenIssuer_WrongType(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, 24*time.Hour)
	refresh, err := issuer.Generate(1, "+919876543210", RefreshToken)
	require.NoError(t, err)

	_, err = issuer.Verify(refresh, AccessToken)
	var typeErr *TokenTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "Invalid token type. Expected access", err.Error())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)
	token, err := issuer.Generate(1, "+919876543210", AccessToken)
	require.NoError(t, err)

	other := NewTokenIssuer("other", time.Hour, time.Hour)
	_, err = other.Verify(token, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("secret", time.Hour, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate(1, "+919876543210", AccessToken)
	require.NoError(t, err)
	_, err = issuer.Verify(old, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
