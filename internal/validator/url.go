package validator

import (
	"net/url"
	"strings"
)

// IsAllowed accepts absolute http(s) URLs whose text contains one of the
// allowed domain fragments.
func IsAllowed(raw string, domains []string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}

	for _, d := range domains {
		if d != "" && strings.Contains(raw, d) {
			return true
		}
	}
	return false
}

// Validator binds an allow-list so handlers don't carry it around.
type Validator struct {
	domains []string
}

func New(domains []string) *Validator {
	return &Validator{domains: append([]string(nil), domains...)}
}

func (v *Validator) Allowed(raw string) bool {
	return IsAllowed(raw, v.domains)
}
