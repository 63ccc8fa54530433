package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"biblioteca/pkg/requestcontext"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"first forwarded entry wins", "203.0.113.5, 10.0.0.1", "10.0.0.2:5555", "203.0.113.5"},
		{"single forwarded entry trimmed", "  198.51.100.7  ", "10.0.0.2:5555", "198.51.100.7"},
		{"empty first entry falls back to peer", " , 10.0.0.1", "192.0.2.10:8080", "192.0.2.10"},
		{"peer address ipv4", "", "192.0.2.10:8080", "192.0.2.10"},
		{"peer address ipv6", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"peer without port", "", "192.0.2.10", "192.0.2.10"},
		{"nothing available", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(tt.forwardedFor, tt.remoteAddr))
		})
	}
}

func TestHostOrDefault(t *testing.T) {
	assert.Equal(t, "api.biblioteca.test", HostOrDefault("api.biblioteca.test"))
	assert.Equal(t, "sistema", HostOrDefault(""))
	assert.Equal(t, "sistema", HostOrDefault("   "))
}

func TestClientMetadataMiddleware(t *testing.T) {
	var gotIP, gotHost string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotHost = requestcontext.Host(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usuarios", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.Host = "biblioteca.local"
	ClientMetadata(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.5", gotIP)
	assert.Equal(t, "biblioteca.local", gotHost)
}
