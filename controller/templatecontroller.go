package controller

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatoura-app/fatoura/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (ctrl *controller) templateInit(e *echo.Echo) {
	g := e.Group("/template")
	g.Use(ctrl.authMiddleware)
	g.GET("/new", ctrl.templateNewForm)
	g.POST("/new", ctrl.templateCreate)
	g.DELETE("/delete/:id", ctrl.templateDelete)
	lg := e.Group("/templates", ctrl.authMiddleware)
	lg.GET("", ctrl.templateList)
}

func (ctrl *controller) templateList(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	list, err := ctrl.model.ListPDFTemplates(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot list templates: %w", err))
	}
	m := ctrl.defaultResponseMap(c, "Papiers à en-tête")
	m["templates"] = list
	return c.Render(http.StatusOK, "templatelist.html", m)
}

func (ctrl *controller) templateNewForm(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Nouveau papier à en-tête")
	return c.Render(http.StatusOK, "templatenew.html", m)
}

// templateCreate stores the uploaded letterhead PDF under a generated name
// and renders preview PNGs of the first pages.
func (ctrl *controller) templateCreate(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)

	fh, err := c.FormFile("pdf")
	if err != nil {
		return ErrInvalid(err, "Veuillez choisir un fichier PDF.")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return ErrInvalid(fmt.Errorf("unexpected extension %q", filepath.Ext(fh.Filename)), "Seuls les fichiers PDF sont acceptés.")
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	}

	dir := ctrl.userAssetsDir(ownerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ErrInternal(fmt.Errorf("cannot create asset dir: %w", err))
	}
	storedName := uuid.New().String() + ".pdf"
	dst := filepath.Join(dir, storedName)

	src, err := fh.Open()
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot open upload: %w", err))
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot store upload: %w", err))
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return ErrInternal(fmt.Errorf("cannot store upload: %w", err))
	}
	if err := out.Close(); err != nil {
		return ErrInternal(fmt.Errorf("cannot store upload: %w", err))
	}

	tpl := &model.PDFTemplate{
		OwnerID: ownerID,
		Name:    name,
		PDFPath: storedName,
	}
	if err := ctrl.model.SavePDFTemplate(tpl, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot save template: %w", err))
	}

	// Previews and page size are best effort; A4 is assumed when the PDF
	// cannot be rendered.
	if w, h, url1, url2, err := ctrl.ensureTemplatePreviews(ownerID, tpl); err == nil {
		tpl.PageWidthCm = w
		tpl.PageHeightCm = h
		tpl.PreviewPage1URL = url1
		tpl.PreviewPage2URL = url2
	} else {
		tpl.PageWidthCm = 21.0
		tpl.PageHeightCm = 29.7
	}
	if err := ctrl.model.SavePDFTemplate(tpl, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot save template: %w", err))
	}

	_ = AddFlash(c, "success", "Papier à en-tête enregistré.")
	return c.Redirect(http.StatusSeeOther, "/templates")
}

// ensureTemplatePreviews renders up to two preview PNGs and returns the page
// dimensions plus public URLs.
func (ctrl *controller) ensureTemplatePreviews(ownerID uint, tpl *model.PDFTemplate) (wcm, hcm float64, page1URL, page2URL string, err error) {
	pdfAbs, err := safeJoin(ctrl.userAssetsDir(ownerID), tpl.PDFPath)
	if err != nil {
		return 0, 0, "", "", err
	}
	outDir := filepath.Join(ctrl.uploadsDir(), "templates", fmt.Sprintf("owner%d", ownerID), fmt.Sprintf("%d", tpl.ID))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, 0, "", "", err
	}
	sizes, pngs, err := renderPDFToPNGs(pdfAbs, outDir, 144, 2)
	if err != nil {
		return 0, 0, "", "", err
	}
	if len(pngs) == 0 {
		return 0, 0, "", "", fmt.Errorf("no preview generated")
	}
	url1, err := ctrl.uploadsAbsToURL(pngs[0])
	if err != nil {
		return 0, 0, "", "", err
	}
	var url2 string
	if len(pngs) > 1 {
		if url2, err = ctrl.uploadsAbsToURL(pngs[1]); err != nil {
			return 0, 0, "", "", err
		}
	}
	return round2(sizes[0][0]), round2(sizes[0][1]), url1, url2, nil
}

func (ctrl *controller) templateDelete(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return ErrInvalid(err, "Identifiant invalide")
	}
	tpl, err := ctrl.model.LoadPDFTemplate(id, ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	if err := ctrl.model.DeletePDFTemplate(id, ownerID); err != nil {
		return ErrInternal(fmt.Errorf("cannot delete template: %w", err))
	}
	// File cleanup is best effort.
	if abs, err := safeJoin(ctrl.userAssetsDir(ownerID), tpl.PDFPath); err == nil {
		_ = os.Remove(abs)
	}
	previewsDir := filepath.Join(ctrl.uploadsDir(), "templates", fmt.Sprintf("owner%d", ownerID), fmt.Sprintf("%d", id))
	_ = os.RemoveAll(previewsDir)

	_ = AddFlash(c, "success", "Papier à en-tête supprimé.")
	return c.Redirect(http.StatusSeeOther, "/templates")
}
