package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/email"
)

// Date is a calendar date encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "fecha_nacimiento debe tener formato AAAA-MM-DD")
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(field, password string) error {
	if !govalidator.RuneLength(password, "8", "100") {
		return dErrors.New(dErrors.CodeValidation, field+" debe tener entre 8 y 100 caracteres")
	}
	checks := []struct {
		ok  func(rune) bool
		msg string
	}{
		{func(r rune) bool { return r >= 'a' && r <= 'z' }, "al menos una letra minúscula"},
		{func(r rune) bool { return r >= 'A' && r <= 'Z' }, "al menos una letra mayúscula"},
		{func(r rune) bool { return r >= '0' && r <= '9' }, "al menos un número"},
		{func(r rune) bool { return strings.ContainsRune(passwordSpecials, r) }, "al menos un carácter especial"},
	}
	for _, c := range checks {
		if strings.IndexFunc(password, c.ok) < 0 {
			return dErrors.New(dErrors.CodeValidation, "La contraseña debe contener "+c.msg)
		}
	}
	return nil
}

// CreateRequest is the body of user creation and registration.
type CreateRequest struct {
	Email          string  `json:"correo"`
	FirstName      string  `json:"nombre"`
	LastName       string  `json:"apellido"`
	Document       string  `json:"documento"`
	Password       string  `json:"contrasena"`
	DocumentTypeID int32   `json:"tipo_documento_id"`
	StatusID       int32   `json:"estado_id"`
	RoleID         int32   `json:"rol_id"`
	Phone          *string `json:"telefono"`
	Address        *string `json:"direccion"`
	BirthDate      *Date   `json:"fecha_nacimiento"`
}

// Normalize trims fields and lower-cases the email.
func (r *CreateRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Document = strings.TrimSpace(r.Document)
}

// Validate checks field formats. Catalogue references are checked by the
// database.
func (r *CreateRequest) Validate() error {
	if !email.Valid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "correo inválido")
	}
	if !govalidator.RuneLength(r.FirstName, "1", "50") {
		return dErrors.New(dErrors.CodeValidation, "nombre es obligatorio y admite hasta 50 caracteres")
	}
	if !govalidator.RuneLength(r.LastName, "1", "100") {
		return dErrors.New(dErrors.CodeValidation, "apellido es obligatorio y admite hasta 100 caracteres")
	}
	if !govalidator.RuneLength(r.Document, "1", "20") || !govalidator.IsAlphanumeric(r.Document) {
		return dErrors.New(dErrors.CodeValidation, "documento debe ser alfanumérico de hasta 20 caracteres")
	}
	if err := validateContact(r.Phone, r.Address); err != nil {
		return err
	}
	return ValidatePassword("contrasena", r.Password)
}

// ToUser builds the row to insert. PasswordHash is filled by the caller.
func (r *CreateRequest) ToUser() *User {
	return &User{
		Email:          r.Email,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Document:       r.Document,
		DocumentTypeID: r.DocumentTypeID,
		StatusID:       r.StatusID,
		RoleID:         r.RoleID,
		Phone:          r.Phone,
		Address:        r.Address,
		BirthDate:      r.BirthDate.ptr(),
	}
}

// ProfileRequest is the body of the profile update.
type ProfileRequest struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Phone     *string `json:"telefono"`
	Address   *string `json:"direccion"`
	BirthDate *Date   `json:"fecha_nacimiento"`
}

func (r *ProfileRequest) Validate() error {
	if r.FirstName != nil && !govalidator.RuneLength(strings.TrimSpace(*r.FirstName), "1", "50") {
		return dErrors.New(dErrors.CodeValidation, "nombre admite entre 1 y 50 caracteres")
	}
	if r.LastName != nil && !govalidator.RuneLength(strings.TrimSpace(*r.LastName), "1", "100") {
		return dErrors.New(dErrors.CodeValidation, "apellido admite entre 1 y 100 caracteres")
	}
	return validateContact(r.Phone, r.Address)
}

func (r *ProfileRequest) ToUpdate() ProfileUpdate {
	return ProfileUpdate{
		FirstName: trimmed(r.FirstName),
		LastName:  trimmed(r.LastName),
		Phone:     r.Phone,
		Address:   r.Address,
		BirthDate: r.BirthDate.ptr(),
	}
}

// PasswordChangeRequest is the body of an authenticated password change.
type PasswordChangeRequest struct {
	Current string `json:"contrasena_actual"`
	New     string `json:"contrasena_nueva"`
}

func (r *PasswordChangeRequest) Validate() error {
	if r.Current == "" {
		return dErrors.New(dErrors.CodeValidation, "contrasena_actual es obligatoria")
	}
	return ValidatePassword("contrasena_nueva", r.New)
}

// ResetRequest asks for a reset code by email.
type ResetRequest struct {
	Email string `json:"correo"`
}

func (r *ResetRequest) Validate() error {
	r.Email = email.Normalize(r.Email)
	if !email.Valid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "correo inválido")
	}
	return nil
}

// ResetVerifyRequest redeems a reset code.
type ResetVerifyRequest struct {
	Email       string `json:"correo"`
	Token       string `json:"token"`
	NewPassword string `json:"contrasena_nueva"`
}

func (r *ResetVerifyRequest) Validate() error {
	r.Email = email.Normalize(r.Email)
	if !email.Valid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "correo inválido")
	}
	if r.Token == "" || len(r.Token) > 100 {
		return dErrors.New(dErrors.CodeValidation, "token inválido")
	}
	return ValidatePassword("contrasena_nueva", r.NewPassword)
}

func validateContact(phone, address *string) error {
	if phone != nil && (!govalidator.IsNumeric(*phone) || !govalidator.RuneLength(*phone, "7", "10")) {
		return dErrors.New(dErrors.CodeValidation, "telefono debe tener entre 7 y 10 dígitos")
	}
	if address != nil && !govalidator.RuneLength(*address, "0", "200") {
		return dErrors.New(dErrors.CodeValidation, "direccion admite hasta 200 caracteres")
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
