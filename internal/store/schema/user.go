package schema

import "time"

// User represents the users table
type User struct {
	// ID is the user identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid"`
	// Username is the unique handle
	Username string `gorm:"column:username;not null;type:text;uniqueIndex"`
	// DisplayName is the human readable name
	DisplayName string `gorm:"column:display_name;not null;type:text;default:''"`
	// AvatarURL references the profile image
	AvatarURL *string `gorm:"column:avatar_url;type:text"`
	// CreatedAt is the timestamp when the user was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
