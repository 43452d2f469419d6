package controller

import (
	"fmt"
	"net/http"

	"github.com/fatoura-app/fatoura/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
)

func (ctrl *controller) productInit(e *echo.Echo) {
	g := e.Group("/product")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.productEdit)
	g.POST("/new", ctrl.productEdit)
	g.GET("/edit/:id", ctrl.productEdit)
	g.POST("/edit/:id", ctrl.productEdit)
	g.DELETE("/delete/:id", ctrl.productDelete)
	lg := e.Group("/products", ctrl.authMiddleware)
	lg.GET("", ctrl.productList)
}

type productForm struct {
	ID          uint   `form:"productid"`
	Reference   string `form:"reference"`
	Name        string `form:"name"`
	Description string `form:"description"`
	UnitPrice   string `form:"unitprice"`
	TaxRate     string `form:"taxrate"`
	Stock       string `form:"stock"`
	Unit        string `form:"unit"`
}

func bindProduct(c echo.Context) (*model.Product, error) {
	ownerID := c.Get("ownerid").(uint)
	pf := productForm{}
	dec := form.NewDecoder()
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := dec.Decode(&pf, c.Request().Form); err != nil {
		return nil, err
	}
	mp := &model.Product{
		Reference:   pf.Reference,
		Name:        pf.Name,
		Description: pf.Description,
		Unit:        pf.Unit,
		OwnerID:     ownerID,
	}
	mp.ID = pf.ID
	var err error
	if mp.UnitPrice, err = parseDecimal(pf.UnitPrice); err != nil {
		return nil, err
	}
	if mp.TaxRate, err = parseDecimal(pf.TaxRate); err != nil {
		return nil, err
	}
	if mp.Stock, err = parseDecimal(pf.Stock); err != nil {
		return nil, err
	}
	return mp, nil
}

func (ctrl *controller) productList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	m := ctrl.defaultResponseMap(c, "Produits")
	products, err := ctrl.model.ListProducts(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list products: %w", err))
	}
	m["products"] = products
	return c.Render(http.StatusOK, "productlist.html", m)
}

func (ctrl *controller) productEdit(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Produit")
		if id := c.Param("id"); id != "" {
			product, err := ctrl.model.LoadProduct(id, ownerID)
			if err != nil {
				return ErrNotFound(err)
			}
			m["product"] = product
		}
		return c.Render(http.StatusOK, "productedit.html", m)
	}

	product, err := bindProduct(c)
	if err != nil {
		return ErrInvalid(err, "Formulaire produit invalide")
	}
	if product.Name == "" {
		_ = AddFlash(c, "error", "Le nom du produit est obligatoire.")
		return c.Redirect(http.StatusSeeOther, "/products")
	}
	if product.UnitPrice.IsNegative() {
		_ = AddFlash(c, "error", "Le prix unitaire ne peut pas être négatif.")
		return c.Redirect(http.StatusSeeOther, "/products")
	}
	if err := ctrl.model.SaveProduct(product, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot save product: %w", err))
	}
	_ = AddFlash(c, "success", "Produit enregistré.")
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (ctrl *controller) productDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	if err := ctrl.model.DeleteProduct(id, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot delete product: %w", err))
	}
	_ = AddFlash(c, "success", "Produit supprimé.")
	return c.Redirect(http.StatusSeeOther, "/products")
}
