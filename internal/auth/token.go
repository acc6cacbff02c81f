// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	ErrTokenInvalid   = errors.New("token is not valid")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the JWT payload. Subject holds the user id.
type Claims struct {
	Email string    `json:"email"`
	Type  TokenType `json:"typ"`
	jwt.StandardClaims
}

// TokenPair is an access token with its refresh token
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer signs and verifies HS512 tokens
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates a token issuer
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Generate signs a token of type typ for the user
func (i *Issuer) Generate(userID, email string, typ TokenType) (string, error) {
	ttl := i.accessTTL
	if typ == TokenRefresh {
		ttl = i.refreshTTL
	}

	issuedAt := i.now()
	claims := Claims{
		Email: email,
		Type:  typ,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: issuedAt.Add(ttl).Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GeneratePair signs a fresh access and refresh token
func (i *Issuer) GeneratePair(userID, email string) (TokenPair, error) {
	access, err := i.Generate(userID, email, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.Generate(userID, email, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate parses token and checks its signature, expiry and type.
// Expired tokens fail with ErrTokenExpired; anything else with ErrTokenInvalid
// or ErrWrongTokenType.
func (i *Issuer) Validate(token string, want TokenType) (*Claims, error) {
	parser := jwt.Parser{SkipClaimsValidation: true}

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %v: %w", err, ErrTokenInvalid)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.ExpiresAt == 0 || claims.ExpiresAt <= i.now().Unix() {
		return nil, ErrTokenExpired
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
