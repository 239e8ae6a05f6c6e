package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
)

// Scopes understood by the admin API.
const (
	ScopeMessagesAdmin = "messages:admin"
	ScopeMessagesRead  = "messages:read"
)

// TokenClaims are the validated contents of an access token.
type TokenClaims struct {
	UserID    kernel.UserID `json:"user_id"`
	Email     string        `json:"email"`
	Scopes    []string      `json:"scopes"`
	IssuedAt  time.Time     `json:"iat"`
	ExpiresAt time.Time     `json:"exp"`
}

// TokenService issues and validates access tokens.
type TokenService interface {
	GenerateAccessToken(userID kernel.UserID, email string, scopes []string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// AuditService records security-relevant admin API events.
type AuditService interface {
	LogAuthFailure(ctx context.Context, reason string, ip string)
	LogAccessDenied(ctx context.Context, userID kernel.UserID, scope string, ip string)
	LogAdminAction(ctx context.Context, userID kernel.UserID, action string, ip string)
}
