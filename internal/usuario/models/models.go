package models

import (
	"time"

	"biblioteca/pkg/secrets"
)

// Role is a row of the rol catalogue.
type Role struct {
	ID          int32   `json:"id"`
	Name        string  `json:"nombre"`
	Acronym     string  `json:"acronimo"`
	Description *string `json:"descripcion,omitempty"`
}

// Status is a row of the estado catalogue.
type Status struct {
	ID          int32   `json:"id"`
	Name        string  `json:"nombre"`
	Description *string `json:"descripcion,omitempty"`
	Kind        string  `json:"tipo"`
}

// DocumentType is a row of the tipo_documento catalogue.
type DocumentType struct {
	ID          int32   `json:"id"`
	Name        string  `json:"nombre"`
	Acronym     string  `json:"acronimo"`
	Description *string `json:"descripcion,omitempty"`
}

// User is the stored usuario record.
//
// Role, Status and DocumentType are populated only by the eager-loading
// finders; plain finders leave them nil.
type User struct {
	ID                int64
	Email             string
	FirstName         string
	LastName          string
	Document          string
	PasswordHash      string
	DocumentTypeID    int32
	StatusID          int32
	RoleID            int32
	ResetToken        *string
	ResetTokenExpires *time.Time
	Phone             *string
	Address           *string
	BirthDate         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Role         *Role
	Status       *Status
	DocumentType *DocumentType
}

// HasActiveResetToken reports whether token matches the pending reset code
// and has not expired at now.
func (u *User) HasActiveResetToken(token string, now time.Time) bool {
	if u.ResetToken == nil || !secrets.CodesEqual(*u.ResetToken, token) {
		return false
	}
	return u.ResetTokenExpires != nil && now.Before(*u.ResetTokenExpires)
}

// ClearResetToken drops the pending reset code.
func (u *User) ClearResetToken() {
	u.ResetToken = nil
	u.ResetTokenExpires = nil
}

// ProfileUpdate carries the self-service profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	BirthDate *time.Time
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Phone != nil {
		u.Phone = p.Phone
	}
	if p.Address != nil {
		u.Address = p.Address
	}
	if p.BirthDate != nil {
		u.BirthDate = p.BirthDate
	}
}
