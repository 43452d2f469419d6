package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
)

func (ctrl *controller) proformaInit(e *echo.Echo) {
	g := e.Group("/proforma")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.proformaEdit)
	g.POST("/new", ctrl.proformaEdit)
	g.GET("/detail/:id", ctrl.proformaDetail)
	g.GET("/edit/:id", ctrl.proformaEdit)
	g.POST("/edit/:id", ctrl.proformaEdit)
	g.DELETE("/delete/:id", ctrl.proformaDelete)
	g.POST("/send/:id", ctrl.proformaSend)
	g.POST("/approve/:id", ctrl.proformaApprove, ctrl.requireCapability(model.RoleAdmin, model.RoleManager))
	g.POST("/reject/:id", ctrl.proformaReject, ctrl.requireCapability(model.RoleAdmin, model.RoleManager))
	g.POST("/unapprove/:id", ctrl.proformaUnapprove, ctrl.requireCapability(model.RoleAdmin, model.RoleManager))
	g.POST("/convert/:id", ctrl.proformaConvert)
	g.POST("/undoconvert/:id", ctrl.proformaUndoConvert)
	lg := e.Group("/proformas", ctrl.authMiddleware)
	lg.GET("", ctrl.proformaList)
}

// lineitem is one document line as posted by the item table. Shared by the
// proforma, invoice and delivery note forms.
type lineitem struct {
	ProductID uint   `form:"productid"`
	Name      string `form:"name"`
	Unit      string `form:"unit"`
	Quantity  string `form:"quantity"`
	UnitPrice string `form:"unitprice"`
	TaxRate   string `form:"taxrate"`
	Discount  string `form:"discount"`
}

type proformaForm struct {
	ProformaID    uint       `form:"proformaid"`
	ClientID      uint       `form:"clientid"`
	Date          time.Time  `form:"date"`
	PaymentMethod string     `form:"paymentmethod"`
	BC            string     `form:"bc"`
	Notes         string     `form:"notes"`
	Items         []lineitem `form:"items"`
}

func newFormDecoder() *form.Decoder {
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return time.Parse("2006-01-02", vals[0])
	}, time.Time{})
	return dec
}

func bindProforma(c echo.Context) (*model.Proforma, error) {
	ownerID := c.Get("ownerid").(uint)
	pf := proformaForm{}
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := newFormDecoder().Decode(&pf, c.Request().Form); err != nil {
		return nil, err
	}
	mp := &model.Proforma{
		ClientID:      pf.ClientID,
		Date:          pf.Date,
		PaymentMethod: pf.PaymentMethod,
		BC:            pf.BC,
		Notes:         pf.Notes,
		OwnerID:       ownerID,
	}
	mp.ID = pf.ProformaID
	position := 0
	for _, it := range pf.Items {
		if it.Quantity == "0" || it.Quantity == "" {
			continue
		}
		position++
		mi := model.ProformaItem{
			Position:  position,
			ProductID: it.ProductID,
			Name:      it.Name,
			Unit:      it.Unit,
			OwnerID:   ownerID,
		}
		var err error
		if mi.Quantity, err = parseDecimal(it.Quantity); err != nil {
			return nil, err
		}
		if mi.UnitPrice, err = parseDecimal(it.UnitPrice); err != nil {
			return nil, err
		}
		if mi.TaxRate, err = parseDecimal(it.TaxRate); err != nil {
			return nil, err
		}
		if mi.DiscountPct, err = parseDecimal(it.Discount); err != nil {
			return nil, err
		}
		mp.Items = append(mp.Items, mi)
	}
	return mp, nil
}

func (ctrl *controller) proformaList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	m := ctrl.defaultResponseMap(c, "Factures proforma")
	ps, err := ctrl.model.ListProformas(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list proformas: %w", err))
	}
	m["proformas"] = ps
	return c.Render(http.StatusOK, "proformalist.html", m)
}

func (ctrl *controller) proformaDetail(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	p, err := ctrl.model.LoadProforma(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	client, err := ctrl.model.LoadClient(p.ClientID, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	m := ctrl.defaultResponseMap(c, "Proforma "+p.Number)
	m["proforma"] = p
	m["client"] = client
	return c.Render(http.StatusOK, "proformadetail.html", m)
}

func (ctrl *controller) proformaEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Proforma")
		clients, err := ctrl.model.ListClients(ownerID)
		if err != nil {
			return ErrInternal(fmt.Errorf("cannot list clients: %w", err))
		}
		products, err := ctrl.model.ListProducts(ownerID)
		if err != nil {
			return ErrInternal(fmt.Errorf("cannot list products: %w", err))
		}
		m["clients"] = clients
		m["products"] = products
		if id := c.Param("id"); id != "" {
			p, err := ctrl.model.LoadProforma(id, ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			m["proforma"] = p
		}
		return c.Render(http.StatusOK, "proformaedit.html", m)
	}

	p, err := bindProforma(c)
	if err != nil {
		return ErrInvalid(err, "Formulaire proforma invalide")
	}
	if p.ID == 0 {
		err = ctrl.model.CreateProforma(p, ownerID)
	} else {
		err = ctrl.model.UpdateProforma(p, ownerID)
	}
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot save proforma: %w", err))
	}
	_ = AddFlash(c, "success", "Proforma enregistrée.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", p.ID))
}

func (ctrl *controller) proformaDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeleteProforma(id, ownerID); err != nil {
		if errors.Is(err, model.ErrProformaNotDraft) {
			_ = AddFlash(c, "error", "Seule une proforma en brouillon peut être supprimée.")
			return c.Redirect(http.StatusSeeOther, "/proformas")
		}
		return ErrInternal(fmt.Errorf("cannot delete proforma: %w", err))
	}
	_ = AddFlash(c, "success", "Proforma supprimée.")
	return c.Redirect(http.StatusSeeOther, "/proformas")
}

func (ctrl *controller) proformaStatusChange(c echo.Context, do func(uint, uint, time.Time) error, success string) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := do(id, ownerID, time.Now()); err != nil {
		_ = AddFlash(c, "error", "Changement de statut impossible : "+err.Error())
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", id))
	}
	_ = AddFlash(c, "success", success)
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", id))
}

func (ctrl *controller) proformaSend(c echo.Context) error {
	return ctrl.proformaStatusChange(c, ctrl.model.SendProforma, "Proforma envoyée.")
}

func (ctrl *controller) proformaApprove(c echo.Context) error {
	return ctrl.proformaStatusChange(c, ctrl.model.ApproveProforma, "Proforma approuvée.")
}

func (ctrl *controller) proformaReject(c echo.Context) error {
	return ctrl.proformaStatusChange(c, ctrl.model.RejectProforma, "Proforma rejetée.")
}

func (ctrl *controller) proformaUnapprove(c echo.Context) error {
	return ctrl.proformaStatusChange(c, ctrl.model.UnapproveProforma, "Approbation retirée.")
}

func (ctrl *controller) proformaConvert(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	inv, err := ctrl.model.ConvertProforma(id, ownerID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrProformaNotApproved):
			_ = AddFlash(c, "error", "La proforma doit être approuvée avant conversion.")
		case errors.Is(err, model.ErrProformaConverted):
			_ = AddFlash(c, "error", "Cette proforma a déjà une facture finale.")
		default:
			return ErrInternal(fmt.Errorf("cannot convert proforma: %w", err))
		}
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", id))
	}
	_ = AddFlash(c, "success", "Facture "+inv.Number+" créée.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", inv.ID))
}

func (ctrl *controller) proformaUndoConvert(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	p, err := ctrl.model.LoadProforma(id, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	if err := ctrl.model.UndoConversion(id, p.FinalInvoiceID, ownerID); err != nil {
		switch {
		case errors.Is(err, model.ErrInvoiceHasPayments):
			_ = AddFlash(c, "error", "Annulation impossible : des paiements existent sur la facture finale.")
		case errors.Is(err, model.ErrProformaNotConverted):
			_ = AddFlash(c, "error", "Cette proforma n'a pas de facture finale.")
		default:
			return ErrInternal(fmt.Errorf("cannot undo conversion: %w", err))
		}
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", id))
	}
	_ = AddFlash(c, "success", "Conversion annulée.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/proforma/detail/%d", id))
}
