// Package auth verifies the sheet admin password and issues the admin tokens
// that authorize bulk uploads.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/louisbranch/fairscore/internal/platform/requestctx"
	"github.com/louisbranch/fairscore/internal/platform/session"
)

// ErrInvalidPassword is returned for a wrong admin password.
var ErrInvalidPassword = errors.New("invalid password")

// Config configures an Authenticator. PasswordHash takes precedence over
// Password.
type Config struct {
	Password     string
	PasswordHash string
	TokenSecret  string
	TokenTTL     time.Duration
	Now          func() time.Time
}

// Authenticator checks the admin password and admin tokens.
type Authenticator struct {
	hash   []byte
	tokens *session.Issuer
}

// New builds an Authenticator. A plain password is hashed at startup.
func New(cfg Config) (*Authenticator, error) {
	hash := []byte(strings.TrimSpace(cfg.PasswordHash))
	if len(hash) == 0 {
		password := strings.TrimSpace(cfg.Password)
		if password == "" {
			return nil, errors.New("admin password or password hash is required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	tokens, err := session.NewIssuer(session.Config{
		Secret: cfg.TokenSecret,
		Issuer: "fairscore-sheet",
		TTL:    cfg.TokenTTL,
		Now:    cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Authenticator{hash: hash, tokens: tokens}, nil
}

// Login returns an admin token for the right password.
func (a *Authenticator) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(strings.TrimSpace(password))); err != nil {
		return "", ErrInvalidPassword
	}
	return a.tokens.Issue(requestctx.Actor{Role: requestctx.RoleAdmin})
}

// Valid reports whether token is a live admin token.
func (a *Authenticator) Valid(token string) bool {
	actor, err := a.tokens.Verify(token)
	return err == nil && actor.Role == requestctx.RoleAdmin
}
