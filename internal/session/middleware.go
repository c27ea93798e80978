package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
)

// HeaderToken carries a freshly issued token on responses and, for clients that do not keep
// cookies, the current token on requests.
const HeaderToken = "X-Session-Token"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Middleware resolves the session for each request, minting one when the client has none
// or presents an invalid token.
type Middleware struct {
	Manager *Manager
	Cookie  CookieConfig
	Logger  zerolog.Logger
}

// Handler attaches the session id to the request context.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if raw := m.extractToken(r); raw != "" {
			claims, err := m.Manager.Parse(raw)
			if err == nil {
				sid = claims.SessionID
				if time.Until(claims.ExpiresAt) < m.Manager.TTL()/2 {
					m.issue(w, sid)
				}
			} else {
				m.Logger.Debug().Err(err).Msg("session_token_rejected")
			}
		}
		if sid == "" {
			sid = NewID()
			m.issue(w, sid)
		}
		next.ServeHTTP(w, r.WithContext(common.WithSessionID(r.Context(), sid)))
	})
}

func (m Middleware) issue(w http.ResponseWriter, sid string) {
	token, exp, err := m.Manager.Issue(sid)
	if err != nil {
		m.Logger.Error().Err(err).Msg("session_issue_failed")
		return
	}
	w.Header().Set(HeaderToken, token)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName(),
		Value:    token,
		Path:     "/",
		Domain:   m.Cookie.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.Cookie.Secure,
		SameSite: m.Cookie.SameSite,
	})
}

func (m Middleware) cookieName() string {
	if m.Cookie.Name == "" {
		return "jwf_session"
	}
	return m.Cookie.Name
}

// extractToken looks at the bearer header, then X-Session-Token, then the cookie.
func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if tok := strings.TrimSpace(r.Header.Get(HeaderToken)); tok != "" {
		return tok
	}
	if cookie, err := r.Cookie(m.cookieName()); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
