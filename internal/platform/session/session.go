// Package session issues and verifies short-lived HS256 session tokens.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/requestctx"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
)

// Config configures an Issuer.
type Config struct {
	// Secret signs tokens. An empty secret is replaced by random bytes, so
	// tokens do not outlive the process.
	Secret string
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// NewIssuer builds an Issuer from cfg.
func NewIssuer(cfg Config) (*Issuer, error) {
	key := []byte(strings.TrimSpace(cfg.Secret))
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "fairscore"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = timeouts.SessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{key: key, issuer: cfg.Issuer, ttl: cfg.TTL, now: cfg.Now}, nil
}

// Issue returns a signed token for actor.
func (i *Issuer) Issue(actor requestctx.Actor) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
		Role:  string(actor.Role),
		Email: actor.Email,
	})
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its actor.
func (i *Issuer) Verify(token string) (requestctx.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return requestctx.Actor{}, apperrors.New(apperrors.CodeAuthTokenMissing, "session token is required")
	}
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		return requestctx.Actor{}, apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid,
			"session token "+reason, map[string]string{"Reason": reason})
	}
	role := requestctx.Role(parsed.Role)
	if role != requestctx.RoleAdmin && role != requestctx.RoleEvaluator {
		return requestctx.Actor{}, apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid,
			"session token role", map[string]string{"Reason": "role"})
	}
	if role == requestctx.RoleEvaluator && (parsed.Subject == "" || parsed.Email == "") {
		return requestctx.Actor{}, apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid,
			"session token subject", map[string]string{"Reason": "subject"})
	}
	return requestctx.Actor{Role: role, ID: parsed.Subject, Email: parsed.Email}, nil
}

// TTL reports the token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }
