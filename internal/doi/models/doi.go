package models

import (
	"strings"

	dErrors "doiregistrar/pkg/domain-errors"
)

const (
	// ProxyHost is the resolver host used for canonical DOI URIs.
	ProxyHost = "doi.org"

	separator = "/"
)

// Doi is an immutable persistent identifier value.
//
// Invariants:
//   - Prefix and Suffix are non-empty
//   - Prefix never contains the separator; Suffix may (DataCite suffixes are opaque)
//
// Construct with New or Parse; the zero value is not a valid Doi.
type Doi struct {
	prefix string
	suffix string
}

// New builds a Doi from its parts. Parts are kept verbatim.
func New(prefix, suffix string) (Doi, error) {
	if strings.TrimSpace(prefix) == "" {
		return Doi{}, dErrors.New(dErrors.KindInvalidInput, "doi prefix is empty")
	}
	if strings.TrimSpace(suffix) == "" {
		return Doi{}, dErrors.New(dErrors.KindInvalidInput, "doi suffix is empty")
	}
	if strings.Contains(prefix, separator) {
		return Doi{}, dErrors.New(dErrors.KindInvalidInput, "doi prefix contains separator")
	}
	return Doi{prefix: prefix, suffix: suffix}, nil
}

// MustNew is New that panics. Use only in tests and constants.
func MustNew(prefix, suffix string) Doi {
	d, err := New(prefix, suffix)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads the identifier form "prefix/suffix", splitting at the first
// separator. Parse(s).String() == s for every accepted s.
func Parse(raw string) (Doi, error) {
	if strings.TrimSpace(raw) == "" {
		return Doi{}, dErrors.New(dErrors.KindInvalidInput, "doi is empty")
	}
	prefix, suffix, ok := strings.Cut(raw, separator)
	if !ok {
		return Doi{}, dErrors.New(dErrors.KindInvalidInput, "doi has no separator: "+raw)
	}
	return New(prefix, suffix)
}

// ParseURI reads a DOI as it appears in publication records: surrounding
// whitespace is dropped and the proxy URI (https://doi.org/P/S) and "doi:"
// forms are reduced to the identifier before parsing.
func ParseURI(raw string) (Doi, error) {
	return Parse(stripProxy(strings.TrimSpace(raw)))
}

func stripProxy(s string) string {
	for _, p := range []string{"https://" + ProxyHost + "/", "http://" + ProxyHost + "/", "https://dx.doi.org/", "doi:"} {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return s[len(p):]
		}
	}
	return s
}

func (d Doi) Prefix() string { return d.prefix }
func (d Doi) Suffix() string { return d.suffix }
func (d Doi) IsZero() bool   { return d.prefix == "" && d.suffix == "" }

// String returns the identifier "prefix/suffix".
func (d Doi) String() string {
	if d.IsZero() {
		return ""
	}
	return d.prefix + separator + d.suffix
}

// URI returns the canonical proxy URI.
func (d Doi) URI() string {
	return "https://" + ProxyHost + "/" + d.String()
}

// HasPrefix reports whether the DOI was minted under prefix.
func (d Doi) HasPrefix(prefix string) bool {
	return d.prefix == prefix
}
