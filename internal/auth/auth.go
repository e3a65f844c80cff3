// Package auth issues and verifies the bearer tokens used by the REST server.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amonks/tareas/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is how long an access token stays valid.
	DefaultAccessTTL = 30 * time.Minute
	// DefaultRefreshTTL is how long a refresh token stays valid.
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// MinSecretLength is the shortest accepted signing secret.
	MinSecretLength = 32
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	// ErrWeakSecret is returned when the signing secret is too short.
	ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

	// ErrInvalidToken is returned for malformed, expired, or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrRevoked is returned for tokens that were logged out.
	ErrRevoked = errors.New("token revoked")
)

// Claims are the JWT claims carried by every token.
type Claims struct {
	Role user.Role `json:"role"`
	Type TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is the token response handed to clients on login or refresh.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Options configures an Issuer.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Issuer signs and verifies HS256 tokens and remembers revoked ones.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewIssuer validates opts and returns an Issuer.
func NewIssuer(opts Options) (*Issuer, error) {
	if len(opts.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	issuer := &Issuer{
		secret:     []byte(opts.Secret),
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Now,
		revoked:    make(map[string]time.Time),
	}
	if issuer.accessTTL <= 0 {
		issuer.accessTTL = DefaultAccessTTL
	}
	if issuer.refreshTTL <= 0 {
		issuer.refreshTTL = DefaultRefreshTTL
	}
	if issuer.now == nil {
		issuer.now = time.Now
	}
	return issuer, nil
}

// Issue returns a fresh access and refresh token for a user.
func (i *Issuer) Issue(name string, role user.Role) (Pair, error) {
	access, err := i.sign(name, role, TokenAccess, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(name, role, TokenRefresh, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(i.accessTTL / time.Second),
	}, nil
}

func (i *Issuer) sign(name string, role user.Role, typ TokenType, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies a token and checks it has the wanted type and has not
// been revoked.
func (i *Issuer) Parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongTokenType, want, claims.Type)
	}
	if i.isRevoked(claims.ID) {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke rejects the token with these claims until it expires.
func (i *Issuer) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	expiry := i.now().Add(i.refreshTTL)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now()
	for id, until := range i.revoked {
		if now.After(until) {
			delete(i.revoked, id)
		}
	}
	i.revoked[claims.ID] = expiry
}

func (i *Issuer) isRevoked(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.revoked[id]
	return ok
}
