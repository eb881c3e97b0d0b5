// Package token issues and validates session tokens.
//
// Tokens are HS256 JWTs carrying a subject (user ID), a unique JTI, and an
// expiry. Revocation is a denylist keyed by JTI; entries carry the token's
// own expiry so they age out once the token could no longer validate anyway.
//
// Every validation failure collapses to ErrUnauthenticated. The wrapped
// detail is for server logs only; handlers must not echo it, so a caller
// probing with a forged token learns nothing beyond "no".
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scrimhub/scrimhub/internal/idgen"
)

// ErrUnauthenticated is the single outward failure mode of Validate.
var ErrUnauthenticated = errors.New("token: unauthenticated")

// PurposePasswordReset marks single-use reset tokens. Tokens with a purpose
// are rejected by the session middleware.
const PurposePasswordReset = "password_reset"

// Claims is what a validated token asserts.
type Claims struct {
	Subject   string
	JTI       string
	ExpiresAt time.Time
	Purpose   string
}

type jwtClaims struct {
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Service issues, validates, and revokes session tokens.
type Service struct {
	secret   []byte
	ttl      time.Duration
	denylist Denylist
	now      func() time.Time
}

// NewService creates a token service. The denylist is consulted on every
// Validate; a nil denylist disables revocation (tests only).
func NewService(secret []byte, ttl time.Duration, denylist Denylist) *Service {
	return &Service{
		secret:   secret,
		ttl:      ttl,
		denylist: denylist,
		now:      time.Now,
	}
}

// Issue signs a session token for the subject. Issuance records nothing
// server-side; the token is self-contained until revoked.
func (s *Service) Issue(subjectID string) (string, Claims, error) {
	return s.issue(subjectID, "", s.ttl)
}

// IssueWithPurpose signs a special-purpose token (password reset) with its
// own TTL. Purpose-bearing tokens never pass session validation.
func (s *Service) IssueWithPurpose(subjectID, purpose string, ttl time.Duration) (string, Claims, error) {
	return s.issue(subjectID, purpose, ttl)
}

func (s *Service) issue(subjectID, purpose string, ttl time.Duration) (string, Claims, error) {
	now := s.now()
	claims := jwtClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        idgen.WithPrefix("jti_"),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return raw, Claims{
		Subject:   subjectID,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Purpose:   purpose,
	}, nil
}

// Validate parses and verifies a raw token, then checks the denylist.
// It is read-only and returns identical Claims for repeated calls on the
// same live token. All failures wrap ErrUnauthenticated; a denylist error
// fails closed.
func (s *Service) Validate(ctx context.Context, raw string) (Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or jti", ErrUnauthenticated)
	}
	if s.denylist != nil {
		revoked, err := s.denylist.Contains(ctx, claims.ID)
		if err != nil {
			return Claims{}, fmt.Errorf("%w: denylist check: %v", ErrUnauthenticated, err)
		}
		if revoked {
			return Claims{}, fmt.Errorf("%w: revoked", ErrUnauthenticated)
		}
	}
	return Claims{
		Subject:   claims.Subject,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Purpose:   claims.Purpose,
	}, nil
}

// Revoke denylists a live token's JTI until the token's own expiry.
// Revoking an invalid token is itself an authentication failure.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.Validate(ctx, raw)
	if err != nil {
		return err
	}
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.Add(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
