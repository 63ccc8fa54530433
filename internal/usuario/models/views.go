package models

import "time"

const dateLayout = "2006-01-02"

// View is the plain representation of a user: catalogue references as ids.
type View struct {
	ID             int64      `json:"id"`
	Email          string     `json:"correo"`
	FirstName      string     `json:"nombre"`
	LastName       string     `json:"apellido"`
	Document       string     `json:"documento"`
	DocumentTypeID int32      `json:"tipo_documento_id"`
	StatusID       int32      `json:"estado_id"`
	RoleID         int32      `json:"rol_id"`
	Phone          *string    `json:"telefono"`
	Address        *string    `json:"direccion"`
	BirthDate      *string    `json:"fecha_nacimiento"`
	CreatedAt      time.Time  `json:"creado_en"`
	UpdatedAt      *time.Time `json:"actualizado_en"`
}

// NormalizedView renders catalogue references as display codes.
type NormalizedView struct {
	ID           int64      `json:"id"`
	Email        string     `json:"correo"`
	FirstName    string     `json:"nombre"`
	LastName     string     `json:"apellido"`
	Document     string     `json:"documento"`
	DocumentType string     `json:"tipo_documento"`
	Status       string     `json:"estado"`
	Role         string     `json:"rol"`
	Phone        *string    `json:"telefono"`
	Address      *string    `json:"direccion"`
	BirthDate    *string    `json:"fecha_nacimiento"`
	CreatedAt    time.Time  `json:"creado_en"`
	UpdatedAt    *time.Time `json:"actualizado_en"`
}

// ToView renders u with timestamps in loc.
func ToView(u *User, loc *time.Location) View {
	return View{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Document:       u.Document,
		DocumentTypeID: u.DocumentTypeID,
		StatusID:       u.StatusID,
		RoleID:         u.RoleID,
		Phone:          u.Phone,
		Address:        u.Address,
		BirthDate:      formatDate(u.BirthDate),
		CreatedAt:      inLocation(u.CreatedAt, loc),
		UpdatedAt:      optionalTime(u.UpdatedAt, loc),
	}
}

// ToNormalizedView renders u with catalogue display codes. Relations that were
// not loaded render as empty strings.
func ToNormalizedView(u *User, loc *time.Location) NormalizedView {
	v := NormalizedView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Document:  u.Document,
		Phone:     u.Phone,
		Address:   u.Address,
		BirthDate: formatDate(u.BirthDate),
		CreatedAt: inLocation(u.CreatedAt, loc),
		UpdatedAt: optionalTime(u.UpdatedAt, loc),
	}
	if u.Role != nil {
		v.Role = u.Role.Acronym
	}
	if u.Status != nil {
		v.Status = u.Status.Name
	}
	if u.DocumentType != nil {
		v.DocumentType = u.DocumentType.Acronym
	}
	return v
}

// Message is the body of operations that return no entity.
type Message struct {
	Message string `json:"message"`
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

func optionalTime(t time.Time, loc *time.Location) *time.Time {
	if t.IsZero() {
		return nil
	}
	local := inLocation(t, loc)
	return &local
}

func formatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format(dateLayout)
	return &s
}
