// Package models holds log_auditoria rows, their views and the list filter.
package models

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "biblioteca/pkg/domain-errors"
	strs "biblioteca/pkg/platform/strings"
)

// Entry is one row written by the audit trigger.
type Entry struct {
	ID           int64
	Table        string
	Operation    string
	DBUser       string
	AppUser      *string
	IP           string
	Host         string
	AppOperation *string
	OccurredAt   time.Time
	Before       json.RawMessage
	After        json.RawMessage
}

// View renders an entry with its timestamp in the configured zone.
type View struct {
	ID           int64           `json:"id"`
	Table        string          `json:"tabla"`
	Operation    string          `json:"operacion"`
	DBUser       string          `json:"usuario_db"`
	AppUser      *string         `json:"usuario_app"`
	IP           string          `json:"ip"`
	Host         string          `json:"host"`
	AppOperation *string         `json:"operacion_app"`
	OccurredAt   time.Time       `json:"fecha_operacion"`
	Before       json.RawMessage `json:"datos_anteriores"`
	After        json.RawMessage `json:"datos_nuevos"`
}

func ToView(e *Entry, loc *time.Location) View {
	occurred := e.OccurredAt
	if loc != nil {
		occurred = occurred.In(loc)
	}
	return View{
		ID:           e.ID,
		Table:        e.Table,
		Operation:    e.Operation,
		DBUser:       e.DBUser,
		AppUser:      e.AppUser,
		IP:           e.IP,
		Host:         e.Host,
		AppOperation: e.AppOperation,
		OccurredAt:   occurred,
		Before:       jsonOrNull(e.Before),
		After:        jsonOrNull(e.After),
	}
}

func jsonOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// Filter narrows the audit listing. A single table and the other text fields
// match case-insensitively anywhere in the column; several tables match
// exactly.
type Filter struct {
	Tables       []string
	Operation    string
	AppUser      string
	AppOperation string
	From         *time.Time
	To           *time.Time
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// ParseFilter reads tabla, operacion, desde_fecha, hasta_fecha, usuario_app
// and operacion_app. tabla may repeat or hold a comma-separated list; table
// names are lowercased and deduplicated. Dates
// without a time are interpreted in loc; a date-only hasta_fecha covers the
// whole day.
func ParseFilter(q url.Values, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.UTC
	}
	var f Filter
	f.Tables = strs.SplitDedupeLower(q["tabla"], ",")
	for _, table := range f.Tables {
		if utf8.RuneCountInString(table) > 100 {
			return Filter{}, dErrors.New(dErrors.CodeValidation, "tabla admite hasta 100 caracteres")
		}
	}

	text := []struct {
		param string
		max   int
		dst   *string
	}{
		{"operacion", 50, &f.Operation},
		{"usuario_app", 100, &f.AppUser},
		{"operacion_app", 100, &f.AppOperation},
	}
	for _, t := range text {
		v := strings.TrimSpace(q.Get(t.param))
		if utf8.RuneCountInString(v) > t.max {
			return Filter{}, dErrors.New(dErrors.CodeValidation, t.param+" excede la longitud permitida")
		}
		*t.dst = v
	}

	var err error
	if f.From, err = parseBound(q.Get("desde_fecha"), "desde_fecha", loc, false); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseBound(q.Get("hasta_fecha"), "hasta_fecha", loc, true); err != nil {
		return Filter{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Filter{}, dErrors.New(dErrors.CodeValidation, "hasta_fecha debe ser posterior a desde_fecha")
	}
	return f, nil
}

func parseBound(raw, param string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateTimeLayout, raw, loc); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation,
			"El formato de '"+param+"' no es válido. Usa ISO 8601 (YYYY-MM-DD o YYYY-MM-DDTHH:MM:SS).")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
