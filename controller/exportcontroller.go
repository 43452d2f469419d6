package controller

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatoura-app/fatoura/model"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

func (ctrl *controller) exportInit(e *echo.Echo) {
	g := e.Group("/export")
	g.Use(ctrl.authMiddleware)
	g.GET("", ctrl.exportPage)
	g.GET("/journal.xlsx", ctrl.exportJournalXLSX)
	g.GET("/backup.zip", ctrl.exportBackupZIP)
	g.GET("/invoice/:id/xml", ctrl.exportInvoiceXML)
	g.POST("/invoice/:id/pdf", ctrl.exportInvoicePDF)
}

func (ctrl *controller) exportPage(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Exports")
	return c.Render(http.StatusOK, "export.html", m)
}

// exportJournalXLSX writes the sales journal: one row per invoice with the
// tax breakdown, stamp duty and payment state.
func (ctrl *controller) exportJournalXLSX(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	invs, err := ctrl.model.ListInvoicesForExport(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load invoices for journal: %w", err))
	}
	clients, err := ctrl.model.ListClients(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load clients for journal: %w", err))
	}
	clientNames := make(map[uint]string, len(clients))
	for i := range clients {
		clientNames[clients[i].ID] = clients[i].Name
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Journal des ventes"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Numéro", "Date", "Client", "Total HT", "TVA", "Droit de timbre", "Total TTC", "Encaissé", "Solde", "Statut", "Mode de paiement"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, bold)
	}

	for row, inv := range invs {
		values := []any{
			inv.Number,
			inv.Date.Format("02/01/2006"),
			clientNames[inv.ClientID],
			inv.Subtotal.Round(2).InexactFloat64(),
			inv.TaxTotal.Round(2).InexactFloat64(),
			inv.StampDuty.Round(2).InexactFloat64(),
			inv.Total.Round(2).InexactFloat64(),
			inv.AmountPaid.Round(2).InexactFloat64(),
			inv.ClientDebt.Round(2).InexactFloat64(),
			string(inv.ComputedStatus()),
			inv.PaymentMethod,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="journal-ventes.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := f.Write(c.Response().Writer); err != nil {
		return ErrInternal(fmt.Errorf("cannot write journal: %w", err))
	}
	return nil
}

type exportClients struct {
	XMLName xml.Name       `xml:"clients"`
	Version string         `xml:"version,attr"`
	Clients []model.Client `xml:"client"`
}

type exportInvoice struct {
	Number        string    `xml:"number"`
	Status        string    `xml:"status"`
	Date          time.Time `xml:"date"`
	DueDate       time.Time `xml:"due_date"`
	ClientID      uint      `xml:"client_id"`
	PaymentMethod string    `xml:"payment_method"`
	Subtotal      string    `xml:"subtotal"`
	TaxTotal      string    `xml:"tax_total"`
	StampDuty     string    `xml:"stamp_duty"`
	Total         string    `xml:"total"`
	AmountPaid    string    `xml:"amount_paid"`
	ClientDebt    string    `xml:"client_debt"`
	Items         []exportItem
}

type exportItem struct {
	XMLName   xml.Name `xml:"item"`
	Position  int      `xml:"position"`
	Name      string   `xml:"name"`
	Unit      string   `xml:"unit"`
	Quantity  string   `xml:"quantity"`
	UnitPrice string   `xml:"unit_price"`
	TaxRate   string   `xml:"tax_rate"`
	Discount  string   `xml:"discount"`
	Total     string   `xml:"total"`
}

type exportInvoices struct {
	XMLName  xml.Name        `xml:"invoices"`
	Version  string          `xml:"version,attr"`
	Invoices []exportInvoice `xml:"invoice"`
}

func toExportInvoice(inv *model.Invoice) exportInvoice {
	items := make([]exportItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = exportItem{
			Position:  it.Position,
			Name:      it.Name,
			Unit:      it.Unit,
			Quantity:  it.Quantity.String(),
			UnitPrice: it.UnitPrice.String(),
			TaxRate:   it.TaxRate.String(),
			Discount:  it.DiscountPct.String(),
			Total:     it.TotalExcl.String(),
		}
	}
	return exportInvoice{
		Number:        inv.Number,
		Status:        string(inv.ComputedStatus()),
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		ClientID:      inv.ClientID,
		PaymentMethod: inv.PaymentMethod,
		Subtotal:      inv.Subtotal.String(),
		TaxTotal:      inv.TaxTotal.String(),
		StampDuty:     inv.StampDuty.String(),
		Total:         inv.Total.String(),
		AmountPaid:    inv.AmountPaid.String(),
		ClientDebt:    inv.ClientDebt.String(),
		Items:         items,
	}
}

func writeZipXML(zw *zip.Writer, name string, v any) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("cannot create %s in ZIP: %w", name, err)
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("cannot encode %s: %w", name, err)
	}
	return enc.Flush()
}

// exportBackupZIP streams a full data backup: clients and invoices as XML.
func (ctrl *controller) exportBackupZIP(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)

	clients, err := ctrl.model.ListClients(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load clients for export: %w", err))
	}
	invs, err := ctrl.model.ListInvoicesForExport(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot load invoices for export: %w", err))
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="fatoura-export.zip"`)
	c.Response().WriteHeader(http.StatusOK)

	zw := zip.NewWriter(c.Response().Writer)

	if err := writeZipXML(zw, "clients.xml", exportClients{Version: "1", Clients: clients}); err != nil {
		return ErrInternal(err)
	}
	export := exportInvoices{Version: "1", Invoices: make([]exportInvoice, 0, len(invs))}
	for i := range invs {
		export.Invoices = append(export.Invoices, toExportInvoice(&invs[i]))
	}
	if err := writeZipXML(zw, "invoices.xml", export); err != nil {
		return ErrInternal(err)
	}
	return zw.Close()
}

// ownerXMLDir returns the per-owner directory for generated XML/PDF files,
// creating it if needed.
func (ctrl *controller) ownerXMLDir(ownerID uint) (string, error) {
	dir := filepath.Join(ctrl.model.Config.XMLDir, fmt.Sprintf("owner%d", ownerID))
	return dir, os.MkdirAll(dir, 0755)
}

func (ctrl *controller) exportInvoiceXML(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	dir, err := ctrl.ownerXMLDir(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot create XML dir: %w", err))
	}
	xmlpath := filepath.Join(dir, fmt.Sprintf("%d.xml", inv.ID))
	if err := ctrl.model.CreateInvoiceXML(inv, ownerID, xmlpath); err != nil {
		return ErrInternal(fmt.Errorf("cannot create invoice XML: %w", err))
	}
	return c.Attachment(xmlpath, inv.Number+".xml")
}

func (ctrl *controller) exportInvoicePDF(c echo.Context) error {
	ownerID := c.Get("ownerid").(uint)
	logger := c.Get("logger").(*slog.Logger)
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), ownerID)
	if err != nil {
		return ErrNotFound(err)
	}
	dir, err := ctrl.ownerXMLDir(ownerID)
	if err != nil {
		return ErrInternal(fmt.Errorf("cannot create XML dir: %w", err))
	}
	xmlpath := filepath.Join(dir, fmt.Sprintf("%d.xml", inv.ID))
	pdfpath := filepath.Join(dir, fmt.Sprintf("%d.pdf", inv.ID))
	if err := ctrl.model.CreateInvoiceXML(inv, ownerID, xmlpath); err != nil {
		return ErrInternal(fmt.Errorf("cannot create invoice XML: %w", err))
	}
	if err := ctrl.model.CreateInvoicePDF(inv, ownerID, xmlpath, pdfpath, logger); err != nil {
		return ErrInternal(fmt.Errorf("cannot create invoice PDF: %w", err))
	}
	return c.Attachment(pdfpath, inv.Number+".pdf")
}
