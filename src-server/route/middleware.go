package route

import (
	"context"
	"errors"
	"invitation/src-server/admin"
	"invitation/src-server/utils"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

type SessionCtxKeyType string

const (
	SessionCtxKey     SessionCtxKeyType = "session"
	SessionCookieName string            = "admin-session"
)

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	// dev clients without cookie support
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session cookie not found"))
			return
		}

		session, err := as.Sessions.Check(r.Context(), token)
		switch {
		case errors.Is(err, admin.ErrSessionExpired):
			clearSessionCookie(w)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session expired"))
			return
		case err != nil:
			slog.Debug("rejected admin session", "error", err)
			clearSessionCookie(w)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid session"))
			return
		}

		ctx := context.WithValue(r.Context(), SessionCtxKey, session)
		next(w, r.WithContext(ctx))
	}
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(r *http.Request) (admin.Session, bool) {
	session, ok := r.Context().Value(SessionCtxKey).(admin.Session)
	return session, ok
}

// RateLimit caps a handler per client IP at RATE_LIMIT_PER_MINUTE.
func RateLimit(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) http.Handler {
	limiter := httprate.Limit(
		as.Config.GetRateLimitPerMinute(),
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Too many requests, try again in a minute"))
		}),
	)
	return limiter(http.HandlerFunc(next))
}

func setSessionCookie(as *utils.AppState, w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(as.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   !as.Config.IsDev(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
