package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fatoura-app/fatoura/model"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// CookieCfg controls how the session cookie is scoped and secured.
type CookieCfg struct {
	IsProd       bool
	ShareSubdoms bool
	ParentDomain string
}

func cookieOptions(maxAge int, cfg CookieCfg) *sessions.Options {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProd {
		opts.Secure = true
		if cfg.ShareSubdoms && cfg.ParentDomain != "" {
			opts.Domain = "." + cfg.ParentDomain
		}
	}
	return opts
}

// authMiddleware ensures a user is authenticated before accessing protected
// routes. It reads uid/ownerid from the session; on failure it redirects to
// /login.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Errorf("cannot load session: %w", err))
		}

		var ok bool
		var uid uint
		if v, exists := sw.Values()["uid"]; exists {
			uid, ok = v.(uint)
		}
		if !ok || uid == 0 {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Set("uid", uid)

		if v, exists := sw.Values()["ownerid"]; exists {
			if ownerid, ok := v.(uint); ok && ownerid != 0 {
				c.Set("ownerid", ownerid)
			} else {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
		} else {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}

// requireCapability gates a route on the user's role. Transitions such as
// approving or rejecting a proforma stay hidden from the UI for other roles;
// this middleware makes the server enforce the same rule.
func (ctrl *controller) requireCapability(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := ctrl.model.GetUserByID(c.Get("uid"))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, fmt.Errorf("cannot get user by ID: %w", err))
			}
			if !model.HasCapability(user.Role, roles...) {
				if err := AddFlash(c, "error", "Vous n'avez pas les droits nécessaires pour cette action."); err != nil {
					return err
				}
				return c.Redirect(http.StatusSeeOther, "/")
			}
			return next(c)
		}
	}
}

// login handles GET (render form) and POST (authenticate).
func (ctrl *controller) login(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Connexion")
		return c.Render(http.StatusOK, "login.html", m)
	}

	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")
	remember := c.FormValue("rememberMe") != ""

	// Authenticate (do not leak whether the user exists).
	user, err := ctrl.model.AuthenticateUser(email, password)
	if err != nil || user == nil {
		if err := AddFlash(c, "error", "Échec de la connexion. Vérifiez vos identifiants."); err != nil {
			return ErrInvalid(err, "erreur lors de l'enregistrement de la session")
		}
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	sw, err := LoadSession(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	sw.Values()["uid"] = user.ID
	sw.Values()["ownerid"] = func() uint {
		if user.OwnerID != 0 {
			return user.OwnerID
		}
		return user.ID
	}()
	sw.Values()["persist"] = remember

	if err := sw.Save(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	_ = ctrl.model.TouchLastLogin(user) // best-effort
	return c.Redirect(http.StatusSeeOther, "/")
}

// logout clears the session and deletes the cookie.
func (ctrl *controller) logout(c echo.Context) error {
	sess, err := session.Get("session", c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	delete(sess.Values, "uid")
	delete(sess.Values, "ownerid")
	delete(sess.Values, "persist")

	if sess.Options == nil {
		sess.Options = &sessions.Options{Path: "/"}
	}
	sess.Options.MaxAge = -1

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	_ = AddFlash(c, "success", "Vous êtes déconnecté.")
	return c.Redirect(http.StatusFound, "/login")
}
