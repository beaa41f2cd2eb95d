package dto

import (
	"time"

	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

// UserResponse represents a marketplace user
type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MapUserToDTO maps a schema.User to UserResponse; nil maps to nil
func MapUserToDTO(user *schema.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt,
	}
}
