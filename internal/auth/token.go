package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims identify the user a token was issued to.
type Claims struct {
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 token pairs. Access and refresh tokens use
// different secrets, so one can never stand in for the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// IssuerConfig holds the secrets and lifetimes of an Issuer. Zero TTLs take
// the defaults.
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// IssueAccess returns a short-lived access token for u.
func (i *Issuer) IssueAccess(u *types.User) (string, error) {
	return i.sign(u, i.accessSecret, i.accessTTL)
}

// IssueRefresh returns a long-lived refresh token for u. Every call yields a
// distinct token.
func (i *Issuer) IssueRefresh(u *types.User) (string, error) {
	return i.sign(u, i.refreshSecret, i.refreshTTL)
}

// VerifyAccess returns the claims of a valid access token.
func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return i.verify(token, i.accessSecret)
}

// VerifyRefresh returns the claims of a valid refresh token.
func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *Issuer) sign(u *types.User, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:  u.ID,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) verify(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, types.ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, types.ErrInvalidToken
	}
	return claims, nil
}
