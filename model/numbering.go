package model

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocType selects the numbering sequence of a document kind.
type DocType string

const (
	DocTypeInvoice  DocType = "invoice"
	DocTypeProforma DocType = "proforma"
	DocTypeDelivery DocType = "delivery"
)

var docPrefix = map[DocType]string{
	DocTypeInvoice:  "F-",
	DocTypeProforma: "P-",
	DocTypeDelivery: "BL-",
}

// DeletedNumber is a pool entry for a document number freed by deletion.
// Freed numbers are reissued oldest-first before a new counter value is
// minted, so gaps in the sequence close again. This mirrors the historical
// schema and keeps numbering compatible with existing documents.
type DeletedNumber struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	OwnerID   uint    `gorm:"index"`
	DocType   DocType `gorm:"type:text"`
	Counter   uint
	Number    string
}

// FormatNumber renders a counter value as a document number, e.g. F-0001.
func FormatNumber(dt DocType, counter uint) string {
	return fmt.Sprintf("%s%04d", docPrefix[dt], counter)
}

// FallbackNumber builds a timestamp-based number for the degraded path when
// the sequence cannot be read. Numbers minted this way are not sequential;
// that is accepted, documented behavior.
func FallbackNumber(dt DocType, t time.Time) string {
	return fmt.Sprintf("%s%s", docPrefix[dt], t.Format("20060102150405"))
}

// nextNumber reserves the next document number inside the given transaction.
// The oldest pooled deleted number wins; otherwise max(counter)+1 is minted.
func nextNumber(tx *gorm.DB, ownerID uint, dt DocType) (string, uint, error) {
	var dn DeletedNumber
	err := tx.Where("owner_id = ? AND doc_type = ?", ownerID, dt).
		Order("created_at asc, id asc").
		First(&dn).Error
	if err == nil {
		if err = tx.Delete(&DeletedNumber{}, dn.ID).Error; err != nil {
			return "", 0, err
		}
		return dn.Number, dn.Counter, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", 0, err
	}

	var max sql.NullInt64
	q := tx.Where("owner_id = ?", ownerID)
	switch dt {
	case DocTypeInvoice:
		q = q.Model(&Invoice{})
	case DocTypeProforma:
		q = q.Model(&Proforma{})
	case DocTypeDelivery:
		q = q.Model(&DeliveryNote{})
	default:
		return "", 0, fmt.Errorf("unknown document type %q", dt)
	}
	if err = q.Select("COALESCE(MAX(counter), 0)").Scan(&max).Error; err != nil {
		return "", 0, err
	}
	counter := uint(max.Int64) + 1
	return FormatNumber(dt, counter), counter, nil
}

// releaseNumber returns a document number to the pool after deletion.
// Numbers from the fallback path carry counter 0 and are not recycled.
func releaseNumber(tx *gorm.DB, ownerID uint, dt DocType, number string, counter uint) error {
	if counter == 0 || number == "" {
		return nil
	}
	return tx.Create(&DeletedNumber{
		OwnerID: ownerID,
		DocType: dt,
		Counter: counter,
		Number:  number,
	}).Error
}
