package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/labstack/echo/v4"
)

func (ctrl *controller) deliveryInit(e *echo.Echo) {
	g := e.Group("/delivery")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.deliveryEdit)
	g.POST("/new", ctrl.deliveryEdit)
	g.GET("/detail/:id", ctrl.deliveryDetail)
	g.GET("/edit/:id", ctrl.deliveryEdit)
	g.POST("/edit/:id", ctrl.deliveryEdit)
	g.DELETE("/delete/:id", ctrl.deliveryDelete)
	g.POST("/delivered/:id", ctrl.deliveryMarkDelivered)
	g.POST("/cancel/:id", ctrl.deliveryCancel)
	lg := e.Group("/deliveries", ctrl.authMiddleware)
	lg.GET("", ctrl.deliveryList)
}

type deliveryForm struct {
	DeliveryID uint       `form:"deliveryid"`
	ClientID   uint       `form:"clientid"`
	InvoiceID  uint       `form:"invoiceid"`
	Date       time.Time  `form:"date"`
	Notes      string     `form:"notes"`
	Items      []lineitem `form:"items"`
}

func bindDeliveryNote(c echo.Context) (*model.DeliveryNote, error) {
	ownerID := c.Get("ownerid").(uint)
	f := deliveryForm{}
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := newFormDecoder().Decode(&f, c.Request().Form); err != nil {
		return nil, err
	}
	dn := &model.DeliveryNote{
		ClientID:  f.ClientID,
		InvoiceID: f.InvoiceID,
		Date:      f.Date,
		Notes:     f.Notes,
		OwnerID:   ownerID,
	}
	dn.ID = f.DeliveryID
	position := 0
	for _, it := range f.Items {
		if it.Quantity == "0" || it.Quantity == "" {
			continue
		}
		position++
		di := model.DeliveryItem{
			Position:  position,
			ProductID: it.ProductID,
			Name:      it.Name,
			Unit:      it.Unit,
			OwnerID:   ownerID,
		}
		var err error
		if di.Quantity, err = parseDecimal(it.Quantity); err != nil {
			return nil, err
		}
		dn.Items = append(dn.Items, di)
	}
	return dn, nil
}

func (ctrl *controller) deliveryList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	m := ctrl.defaultResponseMap(c, "Bons de livraison")
	dns, err := ctrl.model.ListDeliveryNotes(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list delivery notes: %w", err))
	}
	m["deliverynotes"] = dns
	return c.Render(http.StatusOK, "deliverylist.html", m)
}

func (ctrl *controller) deliveryDetail(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	dn, err := ctrl.model.LoadDeliveryNote(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	client, err := ctrl.model.LoadClient(dn.ClientID, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	m := ctrl.defaultResponseMap(c, "Bon de livraison "+dn.Number)
	m["deliverynote"] = dn
	m["client"] = client
	return c.Render(http.StatusOK, "deliverydetail.html", m)
}

func (ctrl *controller) deliveryEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Bon de livraison")
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
			dn, err := ctrl.model.LoadDeliveryNote(id, ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			m["deliverynote"] = dn
		}
		return c.Render(http.StatusOK, "deliveryedit.html", m)
	}

	dn, err := bindDeliveryNote(c)
	if err != nil {
		return ErrInvalid(err, "Formulaire bon de livraison invalide")
	}
	if dn.ID == 0 {
		err = ctrl.model.CreateDeliveryNote(dn, ownerID)
	} else {
		err = ctrl.model.UpdateDeliveryNote(dn, ownerID)
	}
	if err != nil {
		if errors.Is(err, model.ErrDeliveryNotPending) {
			_ = AddFlash(c, "error", "Ce bon de livraison n'est plus modifiable.")
			return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/delivery/detail/%d", dn.ID))
		}
		return ErrInternal(fmt.Errorf("cannot save delivery note: %w", err))
	}
	_ = AddFlash(c, "success", "Bon de livraison enregistré.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/delivery/detail/%d", dn.ID))
}

func (ctrl *controller) deliveryDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeleteDeliveryNote(id, ownerID); err != nil {
		if errors.Is(err, model.ErrDeliveryNotPending) {
			_ = AddFlash(c, "error", "Seul un bon de livraison en attente peut être supprimé.")
			return c.Redirect(http.StatusSeeOther, "/deliveries")
		}
		return ErrInternal(fmt.Errorf("cannot delete delivery note: %w", err))
	}
	_ = AddFlash(c, "success", "Bon de livraison supprimé.")
	return c.Redirect(http.StatusSeeOther, "/deliveries")
}

func (ctrl *controller) deliveryStatusChange(c echo.Context, do func(uint, uint, time.Time) error, success string) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := do(id, ownerID, time.Now()); err != nil {
		_ = AddFlash(c, "error", "Changement de statut impossible : "+err.Error())
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/delivery/detail/%d", id))
	}
	_ = AddFlash(c, "success", success)
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/delivery/detail/%d", id))
}

func (ctrl *controller) deliveryMarkDelivered(c echo.Context) error {
	return ctrl.deliveryStatusChange(c, ctrl.model.MarkDelivered, "Bon de livraison marqué comme livré.")
}

func (ctrl *controller) deliveryCancel(c echo.Context) error {
	return ctrl.deliveryStatusChange(c, ctrl.model.CancelDeliveryNote, "Bon de livraison annulé.")
}
