package schema

import "time"

// Collection represents the collections table - a curated, owned group of stamps
type Collection struct {
	// ID is the collection identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Name is the display name, unique per owner
	Name string `gorm:"column:name;not null;type:text;uniqueIndex:idx_collections_owner_name,priority:2"`
	// OwnerID is the user that curates the collection
	OwnerID string `gorm:"column:owner_id;not null;type:uuid;uniqueIndex:idx_collections_owner_name,priority:1"`
	// ViewCount is the number of recorded views
	ViewCount int64 `gorm:"column:view_count;not null;default:0"`
	// FavouriteCount is the number of recorded favourites
	FavouriteCount int64 `gorm:"column:favourite_count;not null;default:0"`
	// Status is the publication state (draft, published, archived)
	Status string `gorm:"column:status;not null;type:text;default:'draft'"`
	// CreatedAt is the timestamp when the collection was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Collection model
func (Collection) TableName() string {
	return "collections"
}

// CollectionItem represents the collection_items table - the membership relation between
// collections and stamps. The unique pair index makes a collection's items a set and
// serves as the reverse (stamp -> collection) index.
type CollectionItem struct {
	// ID is the insertion sequence
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CollectionID references the collection
	CollectionID string `gorm:"column:collection_id;not null;type:uuid;uniqueIndex:idx_collection_items_pair,priority:1"`
	// StampID references the member stamp
	StampID string `gorm:"column:stamp_id;not null;type:uuid;uniqueIndex:idx_collection_items_pair,priority:2;index:idx_collection_items_stamp_id"`
	// CreatedAt is when the stamp was added
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the CollectionItem model
func (CollectionItem) TableName() string {
	return "collection_items"
}
