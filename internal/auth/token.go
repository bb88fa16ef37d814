// ABOUTME: JWT token issuing and verification for confstore clients
// ABOUTME: Uses HS256 signing with configurable secret and expiry

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenType distinguishes access tokens from refresh tokens in the
// "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject   string   // user uuid, from "sub"
	Email     string   // from "email"
	Roles     []string // from "roles"
	TokenType string   // from "type"
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// JWTManager issues and verifies HS256 signed JWTs
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a manager with the given secret and access token
// expiry.
func NewJWTManager(secret []byte, expiry time.Duration) *JWTManager {
	return &JWTManager{secret: secret, expiry: expiry}
}

// Verify validates the token and decodes its claims. The "sub" claim is
// required; the remaining claims are optional and decoded when present.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	claims := &Claims{Subject: sub}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if tokenType, ok := mapClaims["type"].(string); ok {
		claims.TokenType = tokenType
	}
	if rawRoles, ok := mapClaims["roles"].([]any); ok {
		for _, r := range rawRoles {
			if name, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, name)
			}
		}
	}

	return claims, nil
}

// Generate creates a new access token for the given subject.
func (m *JWTManager) Generate(subject, email string, roles []string) (string, error) {
	return m.generate(subject, email, roles, TokenTypeAccess, m.expiry)
}

// GenerateRefresh creates a refresh token valid for seven times the access
// token expiry.
func (m *JWTManager) GenerateRefresh(subject string) (string, error) {
	return m.generate(subject, "", nil, TokenTypeRefresh, 7*m.expiry)
}

func (m *JWTManager) generate(subject, email string, roles []string, tokenType string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
