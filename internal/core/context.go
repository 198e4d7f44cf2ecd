package core

import "context"

type contextKey string

const (
	ctxKeyUser      contextKey = "current_user"
	ctxKeyIPAddress contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "client_ua"
)

// CurrentUser is the authenticated caller, supplied by the identity layer.
type CurrentUser struct {
	ID string
}

// ContextWithUser stores the authenticated user.
func ContextWithUser(ctx context.Context, u CurrentUser) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	u, ok := ctx.Value(ctxKeyUser).(CurrentUser)
	if !ok || u.ID == "" {
		return CurrentUser{}, false
	}
	return u, true
}

// ContextWithIPAddress adds the client IP for logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds the client User-Agent for logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// GetIPAddressFromContext extracts the client IP.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts the client User-Agent.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
