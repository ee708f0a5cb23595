package models

import "time"

// Role is the closed set of portal roles. Dispatch on this type, never on
// raw strings from the wire.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User is an allow-list entry. Existence of an active row is the precondition
// for any role; removal revokes access at the next login. Student rows carry
// the profile fields snapshotted into leave requests at submission time.
type User struct {
	ID           string  `db:"id" json:"id"`
	Email        string  `db:"email" json:"email"`
	FullName     string  `db:"full_name" json:"full_name"`
	Role         Role    `db:"role" json:"role"`
	PasswordHash *string `db:"password_hash" json:"-"`

	RollNo       string `db:"roll_no" json:"roll_no,omitempty"`
	Department   string `db:"department" json:"department,omitempty"`
	Year         string `db:"year" json:"year,omitempty"`
	HostelName   string `db:"hostel_name" json:"hostel_name,omitempty"`
	RoomNo       string `db:"room_no" json:"room_no,omitempty"`
	ParentMobile string `db:"parent_mobile" json:"parent_mobile,omitempty"`

	AddedBy   *string   `db:"added_by" json:"added_by,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AllowListFilter captures filtering criteria for listing allow-list entries.
type AllowListFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
