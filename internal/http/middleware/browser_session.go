package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/diagnosis/wandernest/pkg/auth"
	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/google/uuid"
)

type ctxKey string

const CtxSessionID ctxKey = "browser_session_id"

// SessionCookieConfig describes the signed cookie identifying a browser.
type SessionCookieConfig struct {
	Name   string
	Secret string
	Secure bool
	TTL    time.Duration
}

// BrowserSession makes sure every request carries a browser session id.
// A missing, expired or forged cookie is replaced by a fresh id.
func BrowserSession(cfg SessionCookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cfg.Name); err == nil && c.Value != "" {
				if claims, err := auth.ParseBrowserSession(c.Value, cfg.Secret); err == nil {
					sid = claims.SessionID
				}
			}

			if sid == "" {
				sid = uuid.NewString()
				signed, err := auth.NewBrowserSession(sid, cfg.Secret, cfg.TTL)
				if err != nil {
					logger.ErrorContext(r.Context(), "Failed to sign browser session", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    signed,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), CtxSessionID, sid)
			ctx = context.WithValue(ctx, logger.SessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the browser session id set by BrowserSession, or "".
func SessionID(r *http.Request) string {
	if v, ok := r.Context().Value(CtxSessionID).(string); ok {
		return v
	}
	return ""
}
