package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/veridianhq/hr-api/internal/domain"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrWrongTokenType = errors.New("unexpected token type")
)

// Claims is the payload carried by both token kinds. Role is a snapshot
// taken at issuance; it is re-derived from storage only at login and
// refresh time, never on access-token use.
type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// EmployeeID parses the subject claim back into an employee id.
func (c *Claims) EmployeeID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// TokenCodec signs and verifies the bearer tokens. A single HS256 secret
// covers both kinds; access and refresh tokens differ only in token_type
// and TTL, and the codec refuses one presented in place of the other.
type TokenCodec struct {
	issuer   string
	audience string
	secret   []byte
}

func NewTokenCodec(issuer, audience, secret string) *TokenCodec {
	return &TokenCodec{issuer: issuer, audience: audience, secret: []byte(secret)}
}

func (c *TokenCodec) IssueAccessToken(employeeID uint, role domain.Role, ttl time.Duration) (string, error) {
	return c.issue(employeeID, role, TokenTypeAccess, ttl)
}

func (c *TokenCodec) IssueRefreshToken(employeeID uint, role domain.Role, ttl time.Duration) (string, error) {
	return c.issue(employeeID, role, TokenTypeRefresh, ttl)
}

func (c *TokenCodec) issue(employeeID uint, role domain.Role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: tokenType,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatUint(uint64(employeeID), 10),
			Audience:  []string{c.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *TokenCodec) DecodeAccessToken(raw string) (*Claims, error) {
	return c.decode(raw, TokenTypeAccess)
}

func (c *TokenCodec) DecodeRefreshToken(raw string) (*Claims, error) {
	return c.decode(raw, TokenTypeRefresh)
}

func (c *TokenCodec) decode(raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithAudience(c.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: got %q", ErrWrongTokenType, claims.TokenType)
	}
	if _, err := domain.ParseRole(claims.Role); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
