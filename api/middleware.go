package api

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
)

type contextKey int

const sessionIDKey contextKey = iota

const sessionCookieName = "pcaptcha_session"

// SessionMiddleware resolves the client's session from its cookie,
// creating one transparently on first contact, and stores the session
// id on the request context. Core operations receive it as an explicit
// parameter; no handler reads ambient session state.
func (a *API) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			a.audit.log(AuditSessionCreated, r)
		}

		if _, err := a.store.EnsureSession(sessionID); err != nil {
			writeError(w, http.StatusInternalServerError, "session initialization failed")
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

// clientIP returns the request's network address without the port.
// Proxy headers are deliberately not consulted; the fingerprint must
// reflect the directly observed peer.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
