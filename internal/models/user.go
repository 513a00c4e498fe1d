package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleHOD   UserRole = "HOD"
	RoleStaff UserRole = "STAFF"
)

// Valid reports whether the role is one the API issues tokens for.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleHOD, RoleStaff:
		return true
	default:
		return false
	}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
