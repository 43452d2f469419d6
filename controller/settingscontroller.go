package controller

import (
	"fmt"
	"net/http"

	"github.com/fatoura-app/fatoura/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
)

func (ctrl *controller) settingsInit(e *echo.Echo) {
	g := e.Group("/settings")
	g.Use(ctrl.authMiddleware)
	g.GET("", ctrl.settingsEdit)
	g.POST("", ctrl.settingsEdit, ctrl.requireCapability(model.RoleAdmin, model.RoleManager))
}

type settingsForm struct {
	CompanyName    string `form:"companyname"`
	InvoiceContact string `form:"invoicecontact"`
	InvoiceEMail   string `form:"invoiceemail"`
	Phone          string `form:"phone"`
	Address1       string `form:"address1"`
	Address2       string `form:"address2"`
	City           string `form:"city"`
	PostalCode     string `form:"postalcode"`
	CountryCode    string `form:"countrycode"`
	Currency       string `form:"currency"`
	NIF            string `form:"nif"`
	RC             string `form:"rc"`
	AI             string `form:"ai"`
	NIS            string `form:"nis"`
	RIB            string `form:"rib"`
	BankName       string `form:"bankname"`
}

func (ctrl *controller) settingsEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Paramètres")
		settings, err := ctrl.model.LoadSettings(ownerID)
		if err != nil {
			return ErrInternal(fmt.Errorf("cannot load settings: %w", err))
		}
		m["settings"] = settings
		return c.Render(http.StatusOK, "settings.html", m)
	}

	sf := settingsForm{}
	if err := c.Request().ParseForm(); err != nil {
		return ErrInvalid(err, "Formulaire paramètres invalide")
	}
	if err := form.NewDecoder().Decode(&sf, c.Request().Form); err != nil {
		return ErrInvalid(err, "Formulaire paramètres invalide")
	}
	settings, err := ctrl.model.LoadSettings(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load settings: %w", err))
	}
	settings.ID = ownerID
	settings.CompanyName = sf.CompanyName
	settings.InvoiceContact = sf.InvoiceContact
	settings.InvoiceEMail = sf.InvoiceEMail
	settings.Phone = sf.Phone
	settings.Address1 = sf.Address1
	settings.Address2 = sf.Address2
	settings.City = sf.City
	settings.PostalCode = sf.PostalCode
	settings.CountryCode = sf.CountryCode
	settings.Currency = sf.Currency
	settings.NIF = sf.NIF
	settings.RC = sf.RC
	settings.AI = sf.AI
	settings.NIS = sf.NIS
	settings.RIB = sf.RIB
	settings.BankName = sf.BankName
	if err := ctrl.model.SaveSettings(settings); err != nil {
		return ErrInternal(fmt.Errorf("cannot save settings: %w", err))
	}
	_ = AddFlash(c, "success", "Paramètres enregistrés.")
	return c.Redirect(http.StatusSeeOther, "/settings")
}
