package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrInvalidToken = errors.New("could not validate credentials")

// TokenTypeError is returned when a valid token of the wrong kind is
// presented, e.g. a refresh token on an authenticated route.
type TokenTypeError struct {
	Expected TokenType
}

func (e *TokenTypeError) Error() string {
	return fmt.Sprintf("Invalid token type. Expected %s", e.Expected)
}

type Claims struct {
	UserID       int64     `json:"user_id"`
	MobileNumber string    `json:"mobile_number"`
	TokenType    TokenType `json:"token_type"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Generate signs a token of the given type for a user.
func (t *TokenIssuer) Generate(userID int64, mobile string, typ TokenType) (string, error) {
	ttl := t.AccessTTL
	if typ == RefreshToken {
		ttl = t.RefreshTTL
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:       userID,
		MobileNumber: mobile,
		TokenType:    typ,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// GeneratePair returns a fresh access and refresh token.
func (t *TokenIssuer) GeneratePair(userID int64, mobile string) (access, refresh string, err error) {
	if access, err = t.Generate(userID, mobile, AccessToken); err != nil {
		return "", "", err
	}
	if refresh, err = t.Generate(userID, mobile, RefreshToken); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify parses the token, checks signature and expiry, and makes sure it
// is of the expected type.
func (t *TokenIssuer) Verify(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, &TokenTypeError{Expected: want}
	}
	return claims, nil
}
