package schema

import "time"

// Insight represents the insights table - engagement and curation state of a stamp.
// At most one row exists per stamp; it is created lazily on first write.
type Insight struct {
	// StampID is both the primary key and the reference to the stamp
	StampID string `gorm:"column:stamp_id;primaryKey;type:uuid"`
	// VerifyStatus is the curation state (unverified, pending, verified, rejected)
	VerifyStatus string `gorm:"column:verify_status;not null;type:text;default:'unverified'"`
	// ViewCount is the number of recorded views
	ViewCount int64 `gorm:"column:view_count;not null;default:0;index:idx_insights_view_count"`
	// FavouriteCount is the number of recorded favourites
	FavouriteCount int64 `gorm:"column:favourite_count;not null;default:0;index:idx_insights_favourite_count"`
	// IsListed indicates whether the stamp is listed for sale
	IsListed bool `gorm:"column:is_listed;not null;default:false"`
	// CreatedAt is the timestamp when the insight row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last counter or status change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Insight model
func (Insight) TableName() string {
	return "insights"
}
