package auth

import (
	"strings"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// LocalsKey is the fiber Locals key holding the *kernel.AuthContext.
const LocalsKey = "auth"

type TokenMiddleware struct {
	tokenService TokenService
	audit        AuditService
}

func NewAuthMiddleware(tokenService TokenService, audit AuditService) *TokenMiddleware {
	return &TokenMiddleware{tokenService: tokenService, audit: audit}
}

// Authenticate validates the bearer token (or the access_token cookie) and
// attaches the caller to the request.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token == "" {
			am.audit.LogAuthFailure(c.UserContext(), "missing token", c.IP())
			return reject(c, ErrUnauthorized())
		}

		claims, err := am.tokenService.ValidateAccessToken(token)
		if err != nil {
			am.audit.LogAuthFailure(c.UserContext(), "invalid token", c.IP())
			return reject(c, err)
		}

		ac := &kernel.AuthContext{
			UserID: claims.UserID,
			Email:  claims.Email,
			Scopes: claims.Scopes,
		}
		c.Locals(LocalsKey, ac)
		c.SetUserContext(kernel.WithAuth(c.UserContext(), ac))
		return c.Next()
	}
}

// RequireScope rejects callers lacking any of scopes.
func (am *TokenMiddleware) RequireScope(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, ok := From(c)
		if !ok {
			return reject(c, ErrUnauthorized())
		}
		if !ac.HasAnyScope(scopes...) {
			am.audit.LogAccessDenied(c.UserContext(), ac.UserID, strings.Join(scopes, ","), c.IP())
			return reject(c, ErrAccessDenied().WithDetail("required", scopes))
		}
		return c.Next()
	}
}

// From returns the caller attached by Authenticate.
func From(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	ac, ok := c.Locals(LocalsKey).(*kernel.AuthContext)
	return ac, ok && ac != nil
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func reject(c *fiber.Ctx, err error) error {
	status, body := errx.Response(err)
	return c.Status(status).JSON(body)
}
