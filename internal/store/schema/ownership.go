package schema

import "time"

// Ownership represents the ownerships table - an append-only log of who held a stamp.
// The current owner is the entry with the greatest CreatedAt, ties broken by the greater ID.
type Ownership struct {
	// ID is the insertion sequence
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// StampID references the stamp, which may since have been deleted
	StampID string `gorm:"column:stamp_id;not null;type:uuid;index:idx_ownerships_stamp_created,priority:1"`
	// OwnerID is the user that obtained the stamp
	OwnerID string `gorm:"column:owner_id;not null;type:uuid;index:idx_ownerships_owner_id"`
	// CreatedAt is when ownership was obtained
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_ownerships_stamp_created,priority:2"`
}

// TableName specifies the table name for the Ownership model
func (Ownership) TableName() string {
	return "ownerships"
}

func (o Ownership) EntryStampID() string { return o.StampID }
func (o Ownership) EntryTime() time.Time { return o.CreatedAt }
func (o Ownership) EntrySequence() int64 { return o.ID }
