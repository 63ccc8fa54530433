// Package models describes book authors.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
)

const (
	OpCreate = "crear_autor"
	OpUpdate = "actualizar_autor"
	OpDelete = "eliminar_autor"
)

const dateLayout = "2006-01-02"

// Author is one autor row. BirthDate and Nationality are nullable in the
// table but required on create.
type Author struct {
	ID          int32
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Nationality *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

type View struct {
	ID          int32      `json:"id"`
	FirstName   string     `json:"nombre"`
	LastName    string     `json:"apellido"`
	BirthDate   *string    `json:"fecha_nacimiento"`
	Nationality *string    `json:"nacionalidad"`
	CreatedAt   time.Time  `json:"creado_en"`
	UpdatedAt   *time.Time `json:"actualizado_en"`
}

func ToView(a *Author, loc *time.Location) View {
	v := View{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Nationality: a.Nationality,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.BirthDate != nil {
		d := a.BirthDate.Format(dateLayout)
		v.BirthDate = &d
	}
	if loc != nil {
		v.CreatedAt = v.CreatedAt.In(loc)
		if v.UpdatedAt != nil {
			u := v.UpdatedAt.In(loc)
			v.UpdatedAt = &u
		}
	}
	return v
}

// ProperName collapses inner whitespace and title-cases each word.
func ProperName(s string) string {
	return cases.Title(language.Spanish).String(strings.Join(strings.Fields(s), " "))
}

// CreateRequest is the body of author creation. Every field is required.
type CreateRequest struct {
	FirstName   string              `json:"nombre"`
	LastName    string              `json:"apellido"`
	BirthDate   *usuarioModels.Date `json:"fecha_nacimiento"`
	Nationality string              `json:"nacionalidad"`
}

func (r *CreateRequest) Normalize() {
	r.FirstName = ProperName(r.FirstName)
	r.LastName = ProperName(r.LastName)
	r.Nationality = strings.TrimSpace(r.Nationality)
}

func (r *CreateRequest) Validate() error {
	if err := validateName("nombre", r.FirstName); err != nil {
		return err
	}
	if err := validateName("apellido", r.LastName); err != nil {
		return err
	}
	if r.BirthDate == nil {
		return dErrors.New(dErrors.CodeValidation, "fecha_nacimiento es obligatoria")
	}
	return validateNationality(r.Nationality)
}

// ToAuthor builds the row to insert.
func (r *CreateRequest) ToAuthor() *Author {
	birth := r.BirthDate.Time
	nationality := r.Nationality
	return &Author{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		BirthDate:   &birth,
		Nationality: &nationality,
	}
}

// UpdateRequest is the body of a partial update. Absent fields keep their
// stored value.
type UpdateRequest struct {
	FirstName   *string             `json:"nombre"`
	LastName    *string             `json:"apellido"`
	BirthDate   *usuarioModels.Date `json:"fecha_nacimiento"`
	Nationality *string             `json:"nacionalidad"`
}

func (r *UpdateRequest) Normalize() {
	if r.FirstName != nil {
		n := ProperName(*r.FirstName)
		r.FirstName = &n
	}
	if r.LastName != nil {
		n := ProperName(*r.LastName)
		r.LastName = &n
	}
	if r.Nationality != nil {
		n := strings.TrimSpace(*r.Nationality)
		r.Nationality = &n
	}
}

func (r *UpdateRequest) Validate() error {
	if r.FirstName != nil {
		if err := validateName("nombre", *r.FirstName); err != nil {
			return err
		}
	}
	if r.LastName != nil {
		if err := validateName("apellido", *r.LastName); err != nil {
			return err
		}
	}
	if r.Nationality != nil {
		return validateNationality(*r.Nationality)
	}
	return nil
}

// Apply copies the set fields onto a.
func (r *UpdateRequest) Apply(a *Author) {
	if r.FirstName != nil {
		a.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		a.LastName = *r.LastName
	}
	if r.BirthDate != nil {
		birth := r.BirthDate.Time
		a.BirthDate = &birth
	}
	if r.Nationality != nil {
		n := *r.Nationality
		a.Nationality = &n
	}
}

func validateName(field, v string) error {
	if !govalidator.RuneLength(v, "2", "50") {
		return dErrors.New(dErrors.CodeValidation, field+" debe tener entre 2 y 50 caracteres")
	}
	return nil
}

func validateNationality(v string) error {
	if !govalidator.RuneLength(v, "2", "50") {
		return dErrors.New(dErrors.CodeValidation, "nacionalidad debe tener entre 2 y 50 caracteres")
	}
	return nil
}
