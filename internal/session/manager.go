// Package session issues and resolves the signed browser session that scopes stored state.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	issuer   = "jwfoods"
	audience = "jwfoods-storefront"
)

// Manager signs and verifies session tokens. The token subject is the session id.
type Manager struct {
	secret    []byte
	ttl       time.Duration
	validator TokenValidator
	now       func() time.Time
}

// NewManager constructs a Manager with an HMAC secret.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: 30 * time.Second,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

// NewID mints a session id.
func NewID() string {
	return uuid.NewString()
}

// Issue signs a token for sid and returns it with its expiry.
func (m *Manager) Issue(sid string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject(sid).
		IssuedAt(now).
		NotBefore(now).
		Expiration(exp).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign token: %w", err)
	}
	return string(signed), exp, nil
}

// Claims is the verified content of a session token.
type Claims struct {
	SessionID string
	ExpiresAt time.Time
}

// Parse verifies raw and returns its claims.
func (m *Manager) Parse(raw string) (Claims, error) {
	tok, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, m.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, fmt.Errorf("session: parse token: %w", err)
	}
	if err := m.validator.Validate(tok, jwa.HS256, m.now()); err != nil {
		return Claims{}, fmt.Errorf("session: validate token: %w", err)
	}
	if _, err := uuid.Parse(tok.Subject()); err != nil {
		return Claims{}, errors.New("session: malformed session id")
	}
	return Claims{SessionID: tok.Subject(), ExpiresAt: tok.Expiration()}, nil
}
