package controller

import (
	"encoding/gob"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/xeonx/timeago"
)

type Flash struct {
	Kind    string // "success" | "error" | "warning" | "info"
	Message string
}

// FlashLoader pulls flashes out of the session (emptying it) and puts them
// into the echo context.
func FlashLoader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, _ := session.Get("session", c)
		raw := sess.Flashes()
		_ = sess.Save(c.Request(), c.Response())

		flashes := make([]Flash, 0, len(raw))
		for _, it := range raw {
			if f, ok := it.(Flash); ok {
				flashes = append(flashes, f)
			}
		}
		c.Set("flashes", flashes)
		return next(c)
	}
}

// AddFlash queues a flash message for the next rendered page.
func AddFlash(c echo.Context, kind, msg string) error {
	sess, _ := session.Get("session", c)
	sess.AddFlash(Flash{Kind: kind, Message: msg})
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return ErrInvalid(err, "Erreur lors de l'enregistrement de la session")
	}
	return nil
}

type appError struct {
	Code   string // stable internal error code for ops/support
	Status int    // matching HTTP status
	Err    error  // original error, never handed to the client
	Public string // safe text for users (optional)
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}

var timeagoFrench = timeago.NoMax(timeago.French)

// The Template interface implements rendering functionality for echo.
type Template struct {
	templates *template.Template
}

// Render is the echo way of rendering templates.
func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

type controller struct {
	model *model.Store
}

func (ctrl *controller) defaultResponseMap(c echo.Context, title string) map[string]any {
	responseMap := map[string]any{
		"title":    title,
		"loggedin": false,
		"path":     c.Request().URL.Path,
	}

	if flashes, ok := c.Get("flashes").([]Flash); ok {
		responseMap["flashes"] = flashes
	} else {
		responseMap["flashes"] = []Flash{}
	}

	if t := c.Get(middleware.DefaultCSRFConfig.ContextKey); t != nil {
		responseMap["CSRFToken"] = t.(string)
	}

	ownerID := c.Get("ownerid")
	userID := c.Get("uid")
	if ownerID == nil || userID == nil {
		return responseMap
	}
	responseMap["ownerid"] = ownerID
	responseMap["uid"] = userID.(uint)
	user, err := ctrl.model.GetUserByID(userID)
	if err != nil {
		c.Get("logger").(*slog.Logger).Warn("cannot get user by ID", "error", err)
		responseMap["uid"] = nil
		responseMap["ownerid"] = nil
		c.Set("uid", nil)
		c.Set("ownerid", nil)
		return responseMap
	}
	if user != nil {
		responseMap["email"] = user.Email
		responseMap["fullname"] = user.FullName
		responseMap["role"] = user.Role
		responseMap["canApprove"] = model.HasCapability(user.Role, model.RoleAdmin, model.RoleManager)
		responseMap["loggedin"] = true
	}
	return responseMap
}

func (ctrl *controller) root(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Accueil")

	ownerID := c.Get("ownerid")
	userID := c.Get("uid")
	if ownerID == nil || userID == nil {
		return c.Render(http.StatusOK, "login.html", m)
	}

	invoices, err := ctrl.model.ListInvoices(ownerID.(uint))
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load invoices: %w", err))
	}
	outstanding := decimal.Zero
	unpaid := 0
	for i := range invoices {
		if st := invoices[i].ComputedStatus(); st == model.InvoiceStatusUnpaid || st == model.InvoiceStatusPartiallyPaid {
			outstanding = outstanding.Add(invoices[i].ClientDebt)
			unpaid++
		}
	}
	if len(invoices) > 10 {
		invoices = invoices[:10]
	}
	m["invoices"] = invoices
	m["outstanding"] = outstanding
	m["unpaidcount"] = unpaid
	return c.Render(http.StatusOK, "main.html", m)
}

// NewController sets up routing and middleware and starts the server.
func NewController(store *model.Store) error {
	// Prod: JSON, Info+; Dev: text, Debug
	var logger *slog.Logger
	if store.Config.Mode == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	gob.Register(Flash{})
	var templateFunc = template.FuncMap{
		"htmldate": func(in time.Time) string {
			return in.Format("2006-01-02")
		},
		"userdate": func(in time.Time) string {
			if in.IsZero() {
				return ""
			}
			return in.Format("02/01/2006")
		},
		"timeago": func(in time.Time) string {
			return timeagoFrench.Format(in)
		},
		"rounddecimal": func(in decimal.Decimal) string {
			return in.Round(2).StringFixed(2)
		},
		"invoiceStatus": func(in model.InvoiceStatus) string {
			status := map[model.InvoiceStatus]string{
				model.InvoiceStatusUnpaid:        "Impayée",
				model.InvoiceStatusPartiallyPaid: "Partiellement payée",
				model.InvoiceStatusPaid:          "Payée",
				model.InvoiceStatusCancelled:     "Annulée",
				model.InvoiceStatusCredited:      "Avoir établi",
			}
			if desc, ok := status[in]; ok {
				return desc
			}
			return "inconnu"
		},
		"proformaStatus": func(in model.ProformaStatus) string {
			status := map[model.ProformaStatus]string{
				model.ProformaStatusDraft:    "Brouillon",
				model.ProformaStatusSent:     "Envoyée",
				model.ProformaStatusApproved: "Approuvée",
				model.ProformaStatusRejected: "Rejetée",
			}
			if desc, ok := status[in]; ok {
				return desc
			}
			return "inconnu"
		},
		"deliveryStatus": func(in model.DeliveryStatus) string {
			status := map[model.DeliveryStatus]string{
				model.DeliveryStatusPending:   "En attente de livraison",
				model.DeliveryStatusDelivered: "Livrée",
				model.DeliveryStatusCancelled: "Annulé",
			}
			if desc, ok := status[in]; ok {
				return desc
			}
			return "inconnu"
		},
		"paymentMethod": func(in string) string {
			methods := map[string]string{
				model.PaymentMethodCash:     "Espèces",
				model.PaymentMethodTransfer: "Virement",
				model.PaymentMethodCheque:   "Chèque",
				model.PaymentMethodCard:     "Carte",
			}
			if desc, ok := methods[in]; ok {
				return desc
			}
			return in
		},
		"nl2br": func(s string) template.HTML {
			esc := html.EscapeString(s)
			return template.HTML(strings.ReplaceAll(esc, "\n", "<br>"))
		},
		"now":    time.Now,
		"before": func(a, b time.Time) bool { return a.Before(b) },
	}

	tmpl := &Template{
		templates: template.Must(template.New("t").Funcs(templateFunc).ParseGlob("public/views/*.html")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("20M"))
	e.Use(middleware.RequestID())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false,
		DisablePrintStack: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			reqLogger := logger.With("request_id", reqID)
			c.Set("logger", reqLogger)
			err := next(c)
			reqLogger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return err
		}
	})

	e.Use(session.Middleware(newCookieStore(store.Config)))
	e.Use(FlashLoader)
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup: "form:csrf,header:X-CSRF-Token",
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/userassets")
		},
	}))

	// All datastore errors end up here: logged with their internal code,
	// surfaced to the user as a generic message, never a crash.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var ae *appError
		status := http.StatusInternalServerError
		public := "Une erreur est survenue. Veuillez réessayer."
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				public = msg
			}
		} else if errors.As(err, &ae) {
			status = ae.Status
			if ae.Public != "" {
				public = ae.Public
			}
			logger.Error("request failed", "code", ae.Code, "error", ae.Err)
		} else {
			logger.Error("request failed", "error", err)
		}
		m := map[string]any{"title": "Erreur", "message": public, "flashes": []Flash{}}
		if rerr := c.Render(status, "error.html", m); rerr != nil {
			_ = c.String(status, public)
		}
	}

	ctrl := &controller{model: store}
	e.Renderer = tmpl
	e.Static("/assets", "public/assets")
	e.Static("/userassets", store.Config.UploadDir)

	e.GET("/", ctrl.root, ctrl.authMiddleware)
	e.GET("/login", ctrl.login)
	e.POST("/login", ctrl.login)
	e.GET("/logout", ctrl.logout)

	ctrl.clientInit(e)
	ctrl.productInit(e)
	ctrl.proformaInit(e)
	ctrl.invoiceInit(e)
	ctrl.deliveryInit(e)
	ctrl.templateInit(e)
	ctrl.exportInit(e)
	ctrl.settingsInit(e)

	logger.Info("starting server", "port", store.Config.Port, "mode", store.Config.Mode)
	return e.Start(fmt.Sprintf(":%d", store.Config.Port))
}
