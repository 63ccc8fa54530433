// Package models describes the reference catalogues: roles, statuses and
// document types that users point at, and the book categories.
package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "biblioteca/pkg/domain-errors"
)

// Kind names a catalogue. Its value is the backing table.
type Kind string

const (
	KindRole         Kind = "rol"
	KindStatus       Kind = "estado"
	KindDocumentType Kind = "tipo_documento"
	KindCategory     Kind = "categoria"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRole, KindStatus, KindDocumentType, KindCategory:
		return true
	}
	return false
}

// Label is the human name used in error messages.
func (k Kind) Label() string {
	switch k {
	case KindRole:
		return "Rol"
	case KindStatus:
		return "Estado"
	case KindDocumentType:
		return "Tipo de documento"
	case KindCategory:
		return "Categoría"
	}
	return string(k)
}

// NotFoundMessage agrees in gender with the label.
func (k Kind) NotFoundMessage() string {
	if k == KindCategory {
		return k.Label() + " no encontrada"
	}
	return k.Label() + " no encontrado"
}

// CreateOperation, UpdateOperation and DeleteOperation are the audit labels
// for writes.
func (k Kind) CreateOperation() string { return "crear_" + string(k) }
func (k Kind) UpdateOperation() string { return "actualizar_" + string(k) }
func (k Kind) DeleteOperation() string { return "eliminar_" + string(k) }

// HasAcronym reports whether rows of k carry an acronimo column.
func (k Kind) HasAcronym() bool {
	return k == KindRole || k == KindDocumentType
}

// Item is one catalogue row. Roles and document types carry an acronym,
// statuses carry a type and categories carry neither.
type Item struct {
	ID          int32
	Kind        Kind
	Name        string
	Acronym     *string
	Type        *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type View struct {
	ID          int32     `json:"id"`
	Name        string    `json:"nombre"`
	Acronym     *string   `json:"acronimo,omitempty"`
	Type        *string   `json:"tipo,omitempty"`
	Description *string   `json:"descripcion"`
	CreatedAt   time.Time `json:"creado_en"`
	UpdatedAt   time.Time `json:"actualizado_en"`
}

func ToView(it *Item, loc *time.Location) View {
	v := View{
		ID:          it.ID,
		Name:        it.Name,
		Acronym:     it.Acronym,
		Type:        it.Type,
		Description: it.Description,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if loc != nil {
		v.CreatedAt = v.CreatedAt.In(loc)
		v.UpdatedAt = v.UpdatedAt.In(loc)
	}
	return v
}

// Filter narrows a list. Type applies to statuses only.
type Filter struct {
	Type string
}

// ParseFilter reads tipo from q. Only statuses can be filtered by type.
func ParseFilter(q url.Values, kind Kind) (Filter, error) {
	t := strings.ToLower(strings.TrimSpace(q.Get("tipo")))
	if t == "" {
		return Filter{}, nil
	}
	if kind != KindStatus {
		return Filter{}, dErrors.New(dErrors.CodeValidation, "tipo solo aplica a estados")
	}
	if !govalidator.RuneLength(t, "1", "50") {
		return Filter{}, dErrors.New(dErrors.CodeValidation, "tipo admite hasta 50 caracteres")
	}
	return Filter{Type: t}, nil
}

// CreateRequest is the body of a create or a full update.
type CreateRequest struct {
	Name        string  `json:"nombre"`
	Acronym     *string `json:"acronimo,omitempty"`
	Type        *string `json:"tipo,omitempty"`
	Description *string `json:"descripcion,omitempty"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	for _, p := range []*string{r.Acronym, r.Type, r.Description} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if r.Acronym != nil {
		upper := strings.ToUpper(*r.Acronym)
		r.Acronym = &upper
	}
	if r.Type != nil {
		lower := strings.ToLower(*r.Type)
		r.Type = &lower
	}
}

// Validate checks r against the columns of kind.
func (r *CreateRequest) Validate(kind Kind) error {
	maxName, maxDescription := "50", "300"
	switch kind {
	case KindRole:
		maxName = "100"
	case KindCategory:
		maxName, maxDescription = "100", "1000"
	}
	if !govalidator.RuneLength(r.Name, "1", maxName) {
		return dErrors.New(dErrors.CodeValidation, "nombre es obligatorio y admite hasta "+maxName+" caracteres")
	}
	if r.Description != nil && !govalidator.RuneLength(*r.Description, "0", maxDescription) {
		return dErrors.New(dErrors.CodeValidation, "descripcion admite hasta "+maxDescription+" caracteres")
	}

	if kind == KindCategory {
		if r.Acronym != nil || r.Type != nil {
			return dErrors.New(dErrors.CodeValidation, "una categoría solo tiene nombre y descripcion")
		}
		return nil
	}
	if kind == KindStatus {
		if r.Acronym != nil {
			return dErrors.New(dErrors.CodeValidation, "un estado no tiene acronimo")
		}
		if r.Type == nil || !govalidator.RuneLength(*r.Type, "1", "50") {
			return dErrors.New(dErrors.CodeValidation, "tipo es obligatorio y admite hasta 50 caracteres")
		}
		return nil
	}
	if r.Type != nil {
		return dErrors.New(dErrors.CodeValidation, "tipo solo aplica a estados")
	}
	if r.Acronym == nil || !govalidator.RuneLength(*r.Acronym, "1", "50") || !govalidator.IsAlphanumeric(*r.Acronym) {
		return dErrors.New(dErrors.CodeValidation, "acronimo es obligatorio, alfanumérico y admite hasta 50 caracteres")
	}
	return nil
}

// ToItem builds the row to insert.
func (r *CreateRequest) ToItem(kind Kind) *Item {
	return &Item{
		Kind:        kind,
		Name:        r.Name,
		Acronym:     r.Acronym,
		Type:        r.Type,
		Description: r.Description,
	}
}
