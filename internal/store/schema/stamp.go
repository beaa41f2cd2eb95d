package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Stamp represents the stamps table - the primary catalogue entity of the marketplace
type Stamp struct {
	// ID is the stamp identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Title is the display title of the stamp
	Title string `gorm:"column:title;not null;type:text"`
	// Issuer is the postal authority or entity that issued the stamp
	Issuer string `gorm:"column:issuer;not null;type:text;index:idx_stamps_issuer"`
	// Function describes the postal function (e.g., "postage", "airmail", "commemorative")
	Function string `gorm:"column:function;not null;type:text"`
	// Date is the issue date of the stamp, nil when unknown
	Date *time.Time `gorm:"column:date"`
	// Color is the dominant printed color
	Color string `gorm:"column:color;not null;type:text"`
	// ImageURL references the stamp artwork
	ImageURL *string `gorm:"column:image_url;type:text"`
	// TokenID references the on-chain token minted for the stamp, nil until minted
	TokenID *string `gorm:"column:token_id;type:text"`
	// CreatorID is the user that registered the stamp
	CreatorID string `gorm:"column:creator_id;not null;type:uuid;index:idx_stamps_creator_id"`
	// Metadata holds free-form attributes attached at creation
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the timestamp when the stamp was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_stamps_created_at_id,priority:1"`
	// UpdatedAt is the timestamp of the last token or media reference update
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Stamp model
func (Stamp) TableName() string {
	return "stamps"
}
