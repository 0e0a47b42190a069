package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTP_HashAndCompare(t *testing.T) {
	var otp OTP
	require.NoError(t, otp.HashCode("123456"))

	assert.NotEqual(t, "123456", otp.CodeHash)
	assert.True(t, otp.CompareCode("123456"))
	assert.False(t, otp.CompareCode("654321"))
}

func TestOTP_Expired(t *testing.T) {
	now := time.Now()
	otp := OTP{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, otp.Expired(now))
	assert.True(t, otp.Expired(now.Add(time.Minute)))
}
