package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/leadbook/internal/logging"
	mw "github.com/JonMunkholm/leadbook/internal/web/middleware"
)

// handleLogout revokes the caller's token for the rest of its lifetime and
// clears the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if ok && s.deps.Revocations != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := s.deps.Revocations.Revoke(r.Context(), claims.ID, ttl); err != nil {
			s.respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
		logging.FromContext(r.Context()).Info("token revoked", "user_id", claims.UserID, "jti", claims.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.authn.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
