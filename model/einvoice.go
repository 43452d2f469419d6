package model

import (
	"fmt"
	"os"
	"strings"

	"github.com/biter777/countries"
	"github.com/speedata/einvoice"
)

// countryID maps a country name or code to a two letter alpha code.
func countryID(country string) string {
	c := countries.ByName(country)
	if c == countries.Unknown {
		return "DZ" // default
	}
	return c.Alpha2()
}

// CreateInvoiceXML writes an EN16931 XML rendition of the invoice to disk.
// The file name is the invoice id plus the extension ".xml".
func (s *Store) CreateInvoiceXML(inv *Invoice, ownerID uint, path string) error {
	settings, err := s.LoadSettings(ownerID)
	if err != nil {
		return err
	}
	client, err := s.LoadClient(inv.ClientID, ownerID)
	if err != nil {
		return err
	}

	currency := settings.Currency
	if currency == "" {
		currency = "DZD"
	}

	zi := einvoice.Invoice{
		InvoiceNumber:       inv.Number,
		InvoiceTypeCode:     380,
		Profile:             einvoice.CProfileEN16931,
		InvoiceDate:         inv.Date,
		OccurrenceDateTime:  inv.Date,
		InvoiceCurrencyCode: currency,
		TaxCurrencyCode:     currency,
		Notes: []einvoice.Note{{
			Text: strings.TrimSpace(inv.Notes),
		}},
		Seller: einvoice.Party{
			Name:              settings.CompanyName,
			VATaxRegistration: settings.NIF,
			PostalAddress: &einvoice.PostalAddress{
				Line1:        settings.Address1,
				Line2:        settings.Address2,
				City:         settings.City,
				PostcodeCode: settings.PostalCode,
				CountryID:    countryID(settings.CountryCode),
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				PersonName: settings.InvoiceContact,
				EMail:      settings.InvoiceEMail,
			}},
		},
		Buyer: einvoice.Party{
			Name:              client.Name,
			VATaxRegistration: client.NIF,
			PostalAddress: &einvoice.PostalAddress{
				Line1:        client.Address1,
				Line2:        client.Address2,
				City:         client.City,
				PostcodeCode: client.PostalCode,
				CountryID:    countryID(client.Country),
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				PersonName: client.ContactName,
			}},
		},
		PaymentMeans: []einvoice.PaymentMeans{
			{
				TypeCode:                               30,
				PayeePartyCreditorFinancialAccountIBAN: settings.RIB,
				PayeePartyCreditorFinancialAccountName: settings.BankName,
			},
		},
		SpecifiedTradePaymentTerms: []einvoice.SpecifiedTradePaymentTerms{{
			DueDate: inv.DueDate,
		}},
	}

	for _, it := range inv.Items {
		li := einvoice.InvoiceLine{
			LineID:                   fmt.Sprintf("%d", it.Position),
			ItemName:                 it.Name,
			BilledQuantity:           it.Quantity,
			BilledQuantityUnit:       it.Unit,
			NetPrice:                 it.UnitPrice,
			TaxRateApplicablePercent: it.TaxRate,
			Total:                    it.TotalExcl,
			TaxTypeCode:              "VAT",
			TaxCategoryCode:          "S",
		}
		zi.InvoiceLines = append(zi.InvoiceLines, li)
	}
	zi.UpdateApplicableTradeTax(nil)
	zi.UpdateTotals()

	var sb strings.Builder
	if err = zi.Write(&sb); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}
