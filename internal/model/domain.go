package model

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/idna"
)

// ErrInvalidDomain is returned when a domain cannot be normalized.
var ErrInvalidDomain = eris.New("model: invalid domain")

// NormalizeDomain reduces user input such as "https://www.Acme.com/about" to
// a bare ASCII host ("acme.com").
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.Wrap(ErrInvalidDomain, "empty domain")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidDomain, "parse %q: %v", raw, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidDomain, "idna %q: %v", raw, err)
	}
	if ascii == "" || !strings.Contains(ascii, ".") {
		return "", eris.Wrapf(ErrInvalidDomain, "%q has no registrable host", raw)
	}
	return ascii, nil
}

// HomepageURL returns the canonical homepage for a normalized domain.
func HomepageURL(domain string) string {
	return "https://" + domain
}
