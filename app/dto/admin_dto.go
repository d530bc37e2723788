package dto

import "time"

// AdminLoginRequest exchanges the shared admin key for an API token
type AdminLoginRequest struct {
	UserID  int64  `json:"user_id" validate:"required"`
	AuthKey string `json:"auth_key" validate:"required"`
}

// AdminLoginResponse carries the issued token
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AddAdminRequest grants admin rights to a user
type AddAdminRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// AdminResponse is the API view of a roster entry
type AdminResponse struct {
	UserID  int64     `json:"user_id"`
	AddedBy *int64    `json:"added_by,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
