// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token issues and validates the signed identity tokens clients
// present on every request.
//
// Tokens are HS256 JWTs. Claims of a validated token are trusted as issued:
// an account that is deactivated or changes role keeps its old claims until
// the token expires, since nothing is stored server-side.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/id"
)

// Domain errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
	ErrWeakSecret    = errors.New("signing secret too short")
)

// MinSecretLength is the shortest accepted signing secret in bytes.
const MinSecretLength = 32

// Claims is the token payload. The tenant claim is omitted for identities
// without a tenant.
type Claims struct {
	TenantID string     `json:"tid,omitempty"`
	Role     authz.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	// ExpiresIn is the lifetime in whole seconds.
	ExpiresIn int64
}

// Config holds token service configuration
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Leeway tolerates clock skew when checking exp, iat and nbf.
	Leeway time.Duration
}

// Service issues and validates identity tokens. It is safe for concurrent
// use; the secret is read-only after construction.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need %d bytes", ErrWeakSecret, MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TTL)
	}

	s := &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for the given identity, valid for the configured TTL.
func (s *Service) Issue(who authz.Identity) (Issued, error) {
	if err := checkIdentity(who.UserID, who.TenantID, who.Role); err != nil {
		return Issued{}, err
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		TenantID: who.TenantID,
		Role:     who.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        id.NewUUIDv7(),
			Issuer:    s.issuer,
			Subject:   who.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return Issued{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(s.ttl / time.Second),
	}, nil
}

// Validate verifies signature, algorithm, issuer and expiry and returns the
// identity the token carries. Every failure wraps ErrInvalidToken.
func (s *Service) Validate(raw string) (authz.Identity, error) {
	if raw == "" {
		return authz.Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	}, s.parserOptions()...)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if err := checkIdentity(claims.Subject, claims.TenantID, claims.Role); err != nil {
		return authz.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return authz.Identity{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, nil
}

func (s *Service) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}
	if s.leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(s.leeway))
	}
	return opts
}

func checkIdentity(userID, tenantID string, role authz.Role) error {
	if userID == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, role)
	}
	if role != authz.RoleSuperAdmin && tenantID == "" {
		return fmt.Errorf("%w: role %s requires a tenant", ErrInvalidClaims, role)
	}
	return nil
}
