package email

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

// MaxLength matches the width of usuario.correo.
const MaxLength = 50

// Normalize trims and lower-cases an address. Lookups, uniqueness and audit
// attribution all use the normalized form.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Valid reports whether address is a syntactically valid email that fits the
// stored column.
func Valid(address string) bool {
	return len(address) <= MaxLength && govalidator.IsEmail(address)
}
