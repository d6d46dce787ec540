package backend

import (
	"fmt"
	"strings"
)

// Provider identifies a test-management service. The zero value is invalid.
type Provider int

const (
	Testfiesta Provider = iota + 1
	Testrail
)

var providers = []Provider{Testfiesta, Testrail}

// Providers lists every known provider.
func Providers() []Provider {
	return append([]Provider(nil), providers...)
}

// String returns the canonical lowercase name used on the helper command line.
func (p Provider) String() string {
	switch p {
	case Testfiesta:
		return "testfiesta"
	case Testrail:
		return "testrail"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// Label is the human-readable provider name.
func (p Provider) Label() string {
	switch p {
	case Testfiesta:
		return "Testfiesta"
	case Testrail:
		return "TestRail"
	default:
		return "Unknown"
	}
}

// ParseProvider matches name case-insensitively against the known providers.
func ParseProvider(name string) (Provider, error) {
	n := strings.TrimSpace(name)
	for _, p := range providers {
		if strings.EqualFold(p.String(), n) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}
