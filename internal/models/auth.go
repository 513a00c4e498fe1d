package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for any of the three login flows.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and principal info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated principal in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	DeptCode string   `json:"dept_code,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. StaffID is empty
// for the configured administrator; DeptCode is only set for HODs.
type JWTClaims struct {
	StaffID  string   `json:"staff_id,omitempty"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	DeptCode string   `json:"dept_code,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin is true for the institution administrator.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// IsHOD is true for heads of department.
func (c *JWTClaims) IsHOD() bool {
	return c != nil && c.Role == RoleHOD
}
