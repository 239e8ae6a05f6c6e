package kernel

import (
	"context"
	"strings"
)

type ContextKey string

const (
	AuthContextKey  ContextKey = "auth_context"
	CurrentStoreKey ContextKey = "current_store"
	RequestIDKey    ContextKey = "request_id"
)

// AuthContext is attached to every authenticated admin request.
type AuthContext struct {
	UserID UserID   `json:"user_id"`
	Email  string   `json:"email"`
	Scopes []string `json:"scopes"`
}

// HasScope reports whether the context grants scope. "*" grants everything
// and "messages:*" grants every "messages:<x>" scope.
func (ac *AuthContext) HasScope(scope string) bool {
	for _, s := range ac.Scopes {
		if s == scope || s == "*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(s, ":*"); ok && strings.HasPrefix(scope, prefix+":") {
			return true
		}
	}
	return false
}

func (ac *AuthContext) HasAnyScope(scopes ...string) bool {
	for _, scope := range scopes {
		if ac.HasScope(scope) {
			return true
		}
	}
	return false
}

func WithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

func AuthFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return ac, ok && ac != nil
}

// WithCurrentStore scopes ctx to the store serving the current request.
// Business events that do not carry their own store resolve against it.
func WithCurrentStore(ctx context.Context, id StoreID) context.Context {
	return context.WithValue(ctx, CurrentStoreKey, id)
}

// CurrentStore returns the store set by WithCurrentStore.
func CurrentStore(ctx context.Context) (StoreID, bool) {
	id, ok := ctx.Value(CurrentStoreKey).(StoreID)
	return id, ok && !id.IsZero()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
