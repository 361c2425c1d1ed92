package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "acme.com", "acme.com"},
		{"uppercase", "ACME.com", "acme.com"},
		{"scheme and path", "https://www.acme.com/about?x=1", "acme.com"},
		{"http", "http://acme.io", "acme.io"},
		{"port", "acme.com:8443", "acme.com"},
		{"trailing dot", "acme.com.", "acme.com"},
		{"whitespace", "  acme.com \n", "acme.com"},
		{"subdomain kept", "app.acme.com", "app.acme.com"},
		{"idn", "bücher.de", "xn--bcher-kva.de"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "localhost", "https://", "not a domain"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeDomain(in)
			assert.ErrorIs(t, err, ErrInvalidDomain)
		})
	}
}

func TestHomepageURL(t *testing.T) {
	assert.Equal(t, "https://acme.com", HomepageURL("acme.com"))
}
