package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/fatoura-app/fatoura/model"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// newCookieStore builds the gorilla cookie store backing all sessions.
func newCookieStore(cfg *model.Config) sessions.Store {
	return sessions.NewCookieStore([]byte(cfg.CookieSecret))
}

// SessionWriter is a thin wrapper around gorilla/sessions that ensures
// cookie options (MaxAge, Secure, SameSite) are applied consistently before
// saving. This avoids accidentally overwriting a persistent "remember me"
// cookie with a temporary one when saving flash messages or other values.
type SessionWriter struct {
	sess *sessions.Session
	c    echo.Context
}

// LoadSession retrieves the session named "session" from the Echo context.
func LoadSession(c echo.Context) (*SessionWriter, error) {
	sess, err := session.Get("session", c)
	if err != nil {
		if isRecoverableSessionError(err) {
			// Treat an invalid cookie as "no session" and start fresh; the
			// session object is still usable and overwrites the cookie on
			// Save().
			log.Printf("invalid session cookie, starting fresh: %v", err)
		} else {
			return nil, err
		}
	}
	return &SessionWriter{sess: sess, c: c}, nil
}

// Values gives access to the session data map:
//
//	sw.Values()["uid"] = user.ID
func (sw *SessionWriter) Values() map[any]any {
	return sw.sess.Values
}

// Save persists the session back to the client, reapplying cookie options
// based on the "persist" flag stored in the session.
func (sw *SessionWriter) Save() error {
	applySessionOptionsFromPersist(sw.c, sw.sess)
	return sw.sess.Save(sw.c.Request(), sw.c.Response())
}

// applySessionOptionsFromPersist adjusts session.Options before saving.
// With "persist" set (remember me), MaxAge is ~1 year; otherwise it is a
// plain session cookie.
func applySessionOptionsFromPersist(c echo.Context, sess *sessions.Session) {
	persist, _ := sess.Values["persist"].(bool)
	maxAge := 0
	if persist {
		maxAge = 60 * 60 * 24 * 365
	}

	cfg, ok := c.Get("cookiecfg").(CookieCfg)
	if !ok {
		cfg = CookieCfg{}
	}
	sess.Options = cookieOptions(maxAge, cfg)
}

// isRecoverableSessionError checks whether the error from session.Get()
// indicates an invalid or stale session cookie that can be treated as
// "no session".
func isRecoverableSessionError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "securecookie: the value is not valid") {
		return true
	}
	var scErr securecookie.Error
	return errors.As(err, &scErr)
}
