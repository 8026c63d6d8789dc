// Package service contains application services over the patient record store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/clinisafe/patientvault/internal/crypto"
	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/limiter"
	"github.com/clinisafe/patientvault/internal/model"
	"github.com/clinisafe/patientvault/internal/repository"
)

// AuthService is the credential gate in front of the record store.
type AuthService interface {
	// Authenticate verifies credentials and returns the caller identity plus a
	// signed access token. Unknown username and wrong password both fail with
	// errs.ErrInvalidCredentials, indistinguishably.
	Authenticate(ctx context.Context, username, password, ip string) (model.Identity, model.Tokens, error)
	// Logout records the end of a session in the audit log.
	Logout(ctx context.Context, actor model.Identity) error
	// ParseToken verifies a token issued by Authenticate and recovers the identity.
	ParseToken(token string) (model.Identity, error)
}

type identityClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	audit     repository.AuditRepository
	lim       limiter.Limiter
	signKey   []byte
	accessTTL time.Duration
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository, audit repository.AuditRepository,
	lim limiter.Limiter, signKey []byte, accessTTL time.Duration,
) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, audit: audit, lim: lim, signKey: signKey, accessTTL: accessTTL}
}

// Authenticate verifies the password digest with rate limiting by (username, ip)
// and logs the login on success. A failed attempt never writes a login entry.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, username, password, ip string) (model.Identity, model.Tokens, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Identity{}, model.Tokens{}, err
	}
	if !allowed {
		return model.Identity{}, model.Tokens{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword(password, u.PasswordHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Identity{}, model.Tokens{}, errs.ErrRateLimited
		}
		// Unknown user and wrong password converge on one error value.
		return model.Identity{}, model.Tokens{}, errs.ErrInvalidCredentials
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	id := model.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
	if err := s.audit.Append(ctx, model.AuditEntry{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		Action:   model.ActionLogin,
		Details:  fmt.Sprintf("User %s logged in", id.Username),
	}); err != nil {
		return model.Identity{}, model.Tokens{}, err
	}

	tokens, err := s.issueAccessToken(id)
	if err != nil {
		return model.Identity{}, model.Tokens{}, err
	}
	return id, tokens, nil
}

// Logout appends a logout entry for the actor.
func (s *AuthServiceImpl) Logout(ctx context.Context, actor model.Identity) error {
	return s.audit.Append(ctx, model.AuditEntry{
		UserID:   actor.UserID,
		Username: actor.Username,
		Role:     actor.Role,
		Action:   model.ActionLogout,
		Details:  fmt.Sprintf("User %s logged out", actor.Username),
	})
}

// issueAccessToken creates a signed HS256 JWT carrying the identity tuple.
func (s *AuthServiceImpl) issueAccessToken(id model.Identity) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   id.UserID,
		Username: id.Username,
		Role:     string(id.Role),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// ParseToken verifies signature and expiry and recovers the identity tuple.
func (s *AuthServiceImpl) ParseToken(token string) (model.Identity, error) {
	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return model.Identity{}, errs.ErrInvalidCredentials
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Identity{}, errs.ErrInvalidCredentials
	}
	return model.Identity{UserID: claims.UserID, Username: claims.Username, Role: role}, nil
}
