package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fatoura-app/fatoura/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
)

func (ctrl *controller) clientInit(e *echo.Echo) {
	g := e.Group("/client")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.clientEdit)
	g.POST("/new", ctrl.clientEdit)
	g.GET("/detail/:id", ctrl.clientDetail)
	g.GET("/edit/:id", ctrl.clientEdit)
	g.POST("/edit/:id", ctrl.clientEdit)
	g.DELETE("/delete/:id", ctrl.clientDelete)
	lg := e.Group("/clients", ctrl.authMiddleware)
	lg.GET("", ctrl.clientList)
}

type clientForm struct {
	ID          uint   `form:"clientid"`
	Name        string `form:"name"`
	ContactName string `form:"contactname"`
	Email       string `form:"email"`
	Phone       string `form:"phone"`
	Address1    string `form:"address1"`
	Address2    string `form:"address2"`
	City        string `form:"city"`
	PostalCode  string `form:"postalcode"`
	Country     string `form:"country"`
	NIF         string `form:"nif"`
	RC          string `form:"rc"`
	AI          string `form:"ai"`
	NIS         string `form:"nis"`
	RIB         string `form:"rib"`
	BankName    string `form:"bankname"`
	Notes       string `form:"notes"`
}

func bindClient(c echo.Context) (*model.Client, error) {
	ownerID := c.Get("ownerid").(uint)
	cf := clientForm{}
	dec := form.NewDecoder()
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := dec.Decode(&cf, c.Request().Form); err != nil {
		return nil, err
	}
	mc := &model.Client{
		Name:        cf.Name,
		ContactName: cf.ContactName,
		Email:       cf.Email,
		Phone:       cf.Phone,
		Address1:    cf.Address1,
		Address2:    cf.Address2,
		City:        cf.City,
		PostalCode:  cf.PostalCode,
		Country:     cf.Country,
		NIF:         cf.NIF,
		RC:          cf.RC,
		AI:          cf.AI,
		NIS:         cf.NIS,
		RIB:         cf.RIB,
		BankName:    cf.BankName,
		Notes:       cf.Notes,
		OwnerID:     ownerID,
	}
	mc.ID = cf.ID
	return mc, nil
}

func (ctrl *controller) clientList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	m := ctrl.defaultResponseMap(c, "Clients")
	clients, err := ctrl.model.ListClients(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list clients: %w", err))
	}
	m["clients"] = clients
	return c.Render(http.StatusOK, "clientlist.html", m)
}

func (ctrl *controller) clientDetail(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	client, err := ctrl.model.LoadClient(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	m := ctrl.defaultResponseMap(c, client.Name)
	m["client"] = client
	return c.Render(http.StatusOK, "clientdetail.html", m)
}

func (ctrl *controller) clientEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Client")
		if id := c.Param("id"); id != "" {
			client, err := ctrl.model.LoadClient(id, ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			m["client"] = client
		}
		return c.Render(http.StatusOK, "clientedit.html", m)
	}

	client, err := bindClient(c)
	if err != nil {
		return ErrInvalid(err, "Formulaire client invalide")
	}
	if client.Name == "" {
		_ = AddFlash(c, "error", "Le nom du client est obligatoire.")
		return c.Redirect(http.StatusSeeOther, "/clients")
	}
	if err := ctrl.model.SaveClient(client, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot save client: %w", err))
	}
	_ = AddFlash(c, "success", "Client enregistré.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/client/detail/%d", client.ID))
}

func (ctrl *controller) clientDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeleteClient(id, ownerID); err != nil {
		if errors.Is(err, model.ErrClientReferenced) {
			_ = AddFlash(c, "error", "Suppression impossible : ce client est peut-être référencé par des factures.")
			return c.Redirect(http.StatusSeeOther, "/clients")
		}
		return ErrInternal(fmt.Errorf("cannot delete client: %w", err))
	}
	_ = AddFlash(c, "success", "Client supprimé.")
	return c.Redirect(http.StatusSeeOther, "/clients")
}
