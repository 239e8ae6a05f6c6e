package auth

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(secret, time.Hour, "courier")

	token, err := svc.GenerateAccessToken("ops-1", "ops@example.com", []string{ScopeMessagesAdmin})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, kernel.UserID("ops-1"), claims.UserID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, []string{ScopeMessagesAdmin}, claims.Scopes)
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTService(secret, time.Minute, "courier")
	token, err := svc.GenerateAccessToken("ops-1", "", nil)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewJWTService(secret, time.Minute, "courier")
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ValidateAccessToken(token)
		assert.True(t, errx.HasCode(err, CodeTokenValidationFailed))
	})
	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService("fedcba9876543210fedcba9876543210", time.Minute, "courier")
		_, err := other.ValidateAccessToken(token)
		assert.True(t, errx.HasCode(err, CodeTokenValidationFailed))
	})
	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(secret, time.Minute, "someone-else")
		_, err := other.ValidateAccessToken(token)
		assert.True(t, errx.HasCode(err, CodeTokenValidationFailed))
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.Error(t, err)
	})
}

type recordingAudit struct {
	failures []string
	denied   []string
}

func (r *recordingAudit) LogAuthFailure(_ context.Context, reason string, _ string) {
	r.failures = append(r.failures, reason)
}

func (r *recordingAudit) LogAccessDenied(_ context.Context, _ kernel.UserID, scope string, _ string) {
	r.denied = append(r.denied, scope)
}

func (r *recordingAudit) LogAdminAction(context.Context, kernel.UserID, string, string) {}

func TestMiddleware(t *testing.T) {
	svc := NewJWTService(secret, time.Hour, "courier")
	audit := &recordingAudit{}
	mw := NewAuthMiddleware(svc, audit)

	app := fiber.New()
	app.Get("/admin", mw.Authenticate(), mw.RequireScope(ScopeMessagesAdmin), func(c *fiber.Ctx) error {
		ac, ok := kernel.AuthFrom(c.UserContext())
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(ac.UserID.String())
	})

	admin, err := svc.GenerateAccessToken("ops-1", "", []string{"messages:*"})
	require.NoError(t, err)
	reader, err := svc.GenerateAccessToken("ops-2", "", []string{ScopeMessagesRead})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no token", "", fiber.StatusUnauthorized, CodeUnauthorized.Code},
		{"bad scheme", "Basic abc", fiber.StatusUnauthorized, CodeUnauthorized.Code},
		{"invalid token", "Bearer nope", fiber.StatusUnauthorized, CodeTokenValidationFailed.Code},
		{"missing scope", "Bearer " + reader, fiber.StatusForbidden, CodeAccessDenied.Code},
		{"admin", "Bearer " + admin, fiber.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.code != "" {
				var body errx.HTTPErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.code, body.Code)
			}
		})
	}

	assert.Len(t, audit.failures, 3)
	assert.Equal(t, []string{ScopeMessagesAdmin}, audit.denied)
}
