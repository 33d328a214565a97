package web

import (
	"net/http"
	"time"

	"github.com/blockedby/lexscout/internal/session"
)

// SessionCookieName identifies the browser's workspace.
const SessionCookieName = "lexscout_session"

// SessionStore resolves browser sessions to workspaces. *session.Manager
// satisfies it.
type SessionStore interface {
	GetOrCreate(id string) (*session.Workspace, bool)
	MaxIdle() time.Duration
}

// SessionCookie builds the cookie that pins a browser to workspace id for
// as long as an idle workspace is kept.
func SessionCookie(id string, maxIdle time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxIdle.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionID returns the id carried by the request cookie, or "".
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ResolveWorkspace returns the request's workspace, creating one and
// setting the cookie when the browser has none or it expired.
func ResolveWorkspace(w http.ResponseWriter, r *http.Request, store SessionStore) *session.Workspace {
	ws, created := store.GetOrCreate(SessionID(r))
	if created {
		http.SetCookie(w, SessionCookie(ws.ID(), store.MaxIdle()))
	}
	return ws
}
