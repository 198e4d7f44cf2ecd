package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/JonMunkholm/leadbook/internal/core"
)

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "auth-token"

// Authenticator resolves the caller of a request from its session token.
type Authenticator struct {
	tokens     *auth.TokenService
	revoked    auth.RevocationList
	cookieName string
}

// NewAuthenticator returns an Authenticator. An empty cookieName means
// DefaultCookieName; a nil revocation list disables revocation checks.
func NewAuthenticator(tokens *auth.TokenService, revoked auth.RevocationList, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Authenticator{tokens: tokens, revoked: revoked, cookieName: cookieName}
}

// CookieName returns the session cookie name.
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// Authenticate parses the request's token and checks it has not been
// revoked.
func (a *Authenticator) Authenticate(r *http.Request) (*auth.Claims, error) {
	raw := tokenFromRequest(r, a.cookieName)
	if raw == "" {
		return nil, core.ErrUnauthorized
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, core.ErrTokenRevoked
		}
	}
	return claims, nil
}

// RequireUser rejects requests without a valid session token with 401 and
// stores the caller as core.CurrentUser otherwise. Revocation list failures
// answer 503 rather than letting the request through.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r)
		if err != nil {
			status := http.StatusUnauthorized
			if !isAuthError(err) {
				status = http.StatusServiceUnavailable
				slog.Error("auth: revocation check failed", "error", err, "path", r.URL.Path)
			} else {
				slog.Debug("auth: rejected request", "error", err, "path", r.URL.Path)
			}
			writeAuthError(w, err, status)
			return
		}

		setLoggedUser(r.Context(), claims.UserID)
		ctx := core.ContextWithUser(r.Context(), core.CurrentUser{ID: claims.UserID})
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

// ClaimsFromContext returns the token claims accepted by RequireUser.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

func isAuthError(err error) bool {
	return errors.Is(err, core.ErrUnauthorized) ||
		errors.Is(err, core.ErrTokenExpired) ||
		errors.Is(err, core.ErrTokenRevoked)
}

// tokenFromRequest prefers the Authorization header over the cookie.
func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
