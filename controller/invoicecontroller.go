package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/labstack/echo/v4"
)

func (ctrl *controller) invoiceInit(e *echo.Echo) {
	g := e.Group("/invoice")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.invoiceEdit)
	g.POST("/new", ctrl.invoiceEdit)
	g.GET("/detail/:id", ctrl.invoiceDetail)
	g.GET("/edit/:id", ctrl.invoiceEdit)
	g.POST("/edit/:id", ctrl.invoiceEdit)
	g.DELETE("/delete/:id", ctrl.invoiceDelete)
	g.POST("/markpaid/:id", ctrl.invoiceMarkPaid)
	g.POST("/cancel/:id", ctrl.invoiceCancel)
	g.POST("/credit/:id", ctrl.invoiceCredit, ctrl.requireCapability(model.RoleAdmin, model.RoleManager))
	g.POST("/revert/:id", ctrl.invoiceRevert)
	g.POST("/email/:id", ctrl.invoiceEmail)
	g.POST("/payment/:id", ctrl.paymentAdd)
	g.DELETE("/payment/:id/:paymentid", ctrl.paymentDelete)
	lg := e.Group("/invoices", ctrl.authMiddleware)
	lg.GET("", ctrl.invoiceList)
}

type invoiceForm struct {
	InvoiceID     uint       `form:"invoiceid"`
	ClientID      uint       `form:"clientid"`
	Date          time.Time  `form:"date"`
	DueDate       time.Time  `form:"duedate"`
	PaymentMethod string     `form:"paymentmethod"`
	BC            string     `form:"bc"`
	Notes         string     `form:"notes"`
	Items         []lineitem `form:"items"`
}

func bindInvoice(c echo.Context) (*model.Invoice, error) {
	ownerID := c.Get("ownerid").(uint)
	f := invoiceForm{}
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := newFormDecoder().Decode(&f, c.Request().Form); err != nil {
		return nil, err
	}
	mi := &model.Invoice{
		ClientID:      f.ClientID,
		Date:          f.Date,
		DueDate:       f.DueDate,
		PaymentMethod: f.PaymentMethod,
		BC:            f.BC,
		Notes:         f.Notes,
		OwnerID:       ownerID,
	}
	mi.ID = f.InvoiceID
	position := 0
	for _, it := range f.Items {
		if it.Quantity == "0" || it.Quantity == "" {
			continue
		}
		position++
		item := model.InvoiceItem{
			Position:  position,
			ProductID: it.ProductID,
			Name:      it.Name,
			Unit:      it.Unit,
			OwnerID:   ownerID,
		}
		var err error
		if item.Quantity, err = parseDecimal(it.Quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = parseDecimal(it.UnitPrice); err != nil {
			return nil, err
		}
		if item.TaxRate, err = parseDecimal(it.TaxRate); err != nil {
			return nil, err
		}
		if item.DiscountPct, err = parseDecimal(it.Discount); err != nil {
			return nil, err
		}
		mi.Items = append(mi.Items, item)
	}
	return mi, nil
}

func (ctrl *controller) invoiceList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	m := ctrl.defaultResponseMap(c, "Factures")
	invs, err := ctrl.model.ListInvoices(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list invoices: %w", err))
	}
	m["invoices"] = invs
	return c.Render(http.StatusOK, "invoicelist.html", m)
}

func (ctrl *controller) invoiceDetail(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	client, err := ctrl.model.LoadClient(inv.ClientID, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	payments, err := ctrl.model.ListPayments(inv.ID, ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list payments: %w", err))
	}
	m := ctrl.defaultResponseMap(c, "Facture "+inv.Number)
	m["invoice"] = inv
	m["client"] = client
	m["payments"] = payments
	m["computedstatus"] = inv.ComputedStatus()
	return c.Render(http.StatusOK, "invoicedetail.html", m)
}

func (ctrl *controller) invoiceEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Facture")
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
			inv, err := ctrl.model.LoadInvoice(id, ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			m["invoice"] = inv
		}
		return c.Render(http.StatusOK, "invoiceedit.html", m)
	}

	inv, err := bindInvoice(c)
	if err != nil {
		return ErrInvalid(err, "Formulaire facture invalide")
	}
	if inv.ID == 0 {
		err = ctrl.model.CreateInvoice(inv, ownerID)
	} else {
		err = ctrl.model.UpdateInvoice(inv, ownerID)
	}
	if err != nil {
		if errors.Is(err, model.ErrInvoiceHasPayments) || errors.Is(err, model.ErrInvoiceNotPayable) {
			_ = AddFlash(c, "error", "Cette facture ne peut plus être modifiée.")
			return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", inv.ID))
		}
		return ErrInternal(fmt.Errorf("cannot save invoice: %w", err))
	}
	_ = AddFlash(c, "success", "Facture enregistrée.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", inv.ID))
}

func (ctrl *controller) invoiceDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeleteInvoice(id, ownerID); err != nil {
		if errors.Is(err, model.ErrInvoiceNotDeletable) || errors.Is(err, model.ErrInvoiceHasPayments) {
			_ = AddFlash(c, "error", "Seule une facture impayée sans paiements peut être supprimée.")
			return c.Redirect(http.StatusSeeOther, "/invoices")
		}
		return ErrInternal(fmt.Errorf("cannot delete invoice: %w", err))
	}
	_ = AddFlash(c, "success", "Facture supprimée.")
	return c.Redirect(http.StatusSeeOther, "/invoices")
}

func (ctrl *controller) invoiceStatusChange(c echo.Context, do func(uint, uint, time.Time) error, success string) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := do(id, ownerID, time.Now()); err != nil {
		_ = AddFlash(c, "error", "Changement de statut impossible : "+err.Error())
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
	}
	_ = AddFlash(c, "success", success)
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
}

func (ctrl *controller) invoiceMarkPaid(c echo.Context) error {
	return ctrl.invoiceStatusChange(c, ctrl.model.MarkInvoicePaid, "Facture marquée comme payée.")
}

func (ctrl *controller) invoiceCancel(c echo.Context) error {
	return ctrl.invoiceStatusChange(c, ctrl.model.CancelInvoice, "Facture annulée.")
}

func (ctrl *controller) invoiceCredit(c echo.Context) error {
	return ctrl.invoiceStatusChange(c, ctrl.model.CreditInvoice, "Avoir établi.")
}

func (ctrl *controller) invoiceRevert(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.RevertInvoice(id, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot revert invoice: %w", err))
	}
	_ = AddFlash(c, "success", "Facture remise en impayée.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
}

func (ctrl *controller) invoiceEmail(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	client, err := ctrl.model.LoadClient(inv.ClientID, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	if client.Email == "" {
		_ = AddFlash(c, "error", "Ce client n'a pas d'adresse e-mail.")
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", inv.ID))
	}
	body := fmt.Sprintf("Bonjour,\n\nVeuillez trouver la facture %s du %s d'un montant de %s.\n\nCordialement",
		inv.Number, inv.Date.Format("02/01/2006"), inv.Total.Round(2).StringFixed(2))
	if err := ctrl.sendEmail(client.Email, "Facture "+inv.Number, body); err != nil {
		return ErrInternal(fmt.Errorf("cannot send invoice mail: %w", err))
	}
	_ = AddFlash(c, "success", "Facture envoyée à "+client.Email+".")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", inv.ID))
}

func (ctrl *controller) paymentAdd(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	amount, err := parseDecimal(c.FormValue("amount"))
	if err != nil {
		return ErrInvalid(err, "Montant invalide")
	}
	date := time.Now()
	if d := c.FormValue("date"); d != "" {
		if parsed, err := time.Parse("2006-01-02", d); err == nil {
			date = parsed
		}
	}
	p := &model.Payment{
		OwnerID:   ownerID,
		InvoiceID: id,
		Amount:    amount,
		Date:      date,
		Method:    c.FormValue("method"),
		Reference: c.FormValue("reference"),
		Notes:     c.FormValue("notes"),
	}
	clamped, err := ctrl.model.AddPayment(p, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvoiceSettled):
			_ = AddFlash(c, "error", "Cette facture est déjà soldée.")
		case errors.Is(err, model.ErrInvoiceNotPayable):
			_ = AddFlash(c, "error", "Aucun paiement possible sur une facture annulée ou avec avoir.")
		default:
			_ = AddFlash(c, "error", "Paiement refusé : "+err.Error())
		}
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
	}
	if clamped {
		_ = AddFlash(c, "warning", "Le montant dépassait le solde restant et a été ramené à "+p.Amount.Round(2).StringFixed(2)+".")
	} else {
		_ = AddFlash(c, "success", "Paiement enregistré.")
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
}

func (ctrl *controller) paymentDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	paymentID, err := parseUintParam(c, "paymentid")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeletePayment(paymentID, id, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot delete payment: %w", err))
	}
	_ = AddFlash(c, "success", "Paiement supprimé.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/invoice/detail/%d", id))
}
