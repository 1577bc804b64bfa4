// Package authtoken issues and validates HS256-signed session tokens for
// the master, derived from a shared secret. cmd/songlist-master mints one
// with its -secret flag and logs it; nothing on the replica side calls
// ValidateToken, and the add/delete/get wire lines carry no token.
package authtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptyMasterID = errors.New("masterID cannot be empty")
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
)

// Claims identifies the master session a token was issued for.
type Claims struct {
	MasterID  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Manager issues and validates master session tokens.
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewManager builds a Manager. secret must be at least 32 characters, the
// same floor the teacher's token manager enforces.
func NewManager(secret string, tokenDuration time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &Manager{secretKey: []byte(secret), tokenDuration: tokenDuration}, nil
}

// IssueToken signs a session token for masterID.
func (m *Manager) IssueToken(masterID string) (string, error) {
	if masterID == "" {
		return "", ErrEmptyMasterID
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenDuration)

	claims := jwt.MapClaims{
		"master_id": masterID,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("authtoken: sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken checks the signature and expiry of tokenString and
// returns the session it identifies.
func (m *Manager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	masterID, ok := claimsMap["master_id"].(string)
	if !ok || masterID == "" {
		return nil, fmt.Errorf("%w: missing or invalid master_id", ErrInvalidClaims)
	}

	expFloat, ok := claimsMap["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrInvalidClaims)
	}
	expiresAt := time.Unix(int64(expFloat), 0)
	if time.Now().After(expiresAt) {
		return nil, ErrExpiredToken
	}

	iatFloat, _ := claimsMap["iat"].(float64)
	issuedAt := time.Unix(int64(iatFloat), 0)

	return &Claims{MasterID: masterID, ExpiresAt: expiresAt, IssuedAt: issuedAt}, nil
}

// Name identifies this validator for logging.
func (m *Manager) Name() string { return "jwt-hs256" }
