package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pricing represents the pricings table - an append-only log of asking prices for a stamp
type Pricing struct {
	// ID is the insertion sequence
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// StampID references the stamp, which may since have been deleted
	StampID string `gorm:"column:stamp_id;not null;type:uuid;index:idx_pricings_stamp_created,priority:1"`
	// Price is the asking price
	Price decimal.Decimal `gorm:"column:price;not null;type:numeric(38,8)"`
	// CreatedAt is when the price was set
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_pricings_stamp_created,priority:2"`
}

// TableName specifies the table name for the Pricing model
func (Pricing) TableName() string {
	return "pricings"
}

func (p Pricing) EntryStampID() string { return p.StampID }
func (p Pricing) EntryTime() time.Time { return p.CreatedAt }
func (p Pricing) EntrySequence() int64 { return p.ID }
