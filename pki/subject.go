package pki

import (
	"crypto/x509/pkix"
	"fmt"
	"strings"

	"github.com/jmcleod/certgen/internal/util"
)

// Field is one of the enumerated distinguished-name fields a Subject carries.
type Field string

const (
	FieldCountry            Field = "country"
	FieldState              Field = "state"
	FieldLocality           Field = "locality"
	FieldOrganization       Field = "organization"
	FieldOrganizationalUnit Field = "organizationalUnit"
	FieldCommonName         Field = "commonName"
)

// fieldAliases maps accepted spellings (long names and OpenSSL short names,
// lower-cased) to their Field.
var fieldAliases = map[string]Field{
	"country":            FieldCountry,
	"c":                  FieldCountry,
	"state":              FieldState,
	"province":           FieldState,
	"st":                 FieldState,
	"locality":           FieldLocality,
	"l":                  FieldLocality,
	"organization":       FieldOrganization,
	"o":                  FieldOrganization,
	"organizationalunit": FieldOrganizationalUnit,
	"ou":                 FieldOrganizationalUnit,
	"commonname":         FieldCommonName,
	"cn":                 FieldCommonName,
}

// ParseField resolves a field name to a Field. Names outside the enumerated
// set yield ErrUnknownSubjectField.
func ParseField(name string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSubjectField, name)
	}
	return f, nil
}

// Defaults holds the organisational fields shared by every certificate in a
// run. It is a plain value: BuildSubject receives a copy and never writes
// back into the caller's Defaults.
type Defaults struct {
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
}

// DefaultOrganization returns the built-in organisational fields.
func DefaultOrganization() Defaults {
	return Defaults{
		Country:            "US",
		State:              "New York",
		Locality:           "New York",
		Organization:       "Evil Corp",
		OrganizationalUnit: "DevOps Automation",
	}
}

// ParseDefaults builds Defaults from a field-name keyed map, starting from
// base. Unknown names yield ErrUnknownSubjectField; a common name is rejected
// because it is always supplied per certificate.
func ParseDefaults(base Defaults, fields map[string]string) (Defaults, error) {
	d := base
	for name, value := range fields {
		f, err := ParseField(name)
		if err != nil {
			return Defaults{}, err
		}
		switch f {
		case FieldCountry:
			d.Country = value
		case FieldState:
			d.State = value
		case FieldLocality:
			d.Locality = value
		case FieldOrganization:
			d.Organization = value
		case FieldOrganizationalUnit:
			d.OrganizationalUnit = value
		case FieldCommonName:
			return Defaults{}, fmt.Errorf("%w: common name cannot be a shared default", ErrInvalidSubject)
		}
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Subject
// ---------------------------------------------------------------------------

// Subject is an immutable distinguished name. The zero value is an empty
// subject; use BuildSubject or SubjectFromName to obtain a populated one.
type Subject struct {
	country            string
	state              string
	locality           string
	organization       string
	organizationalUnit string
	commonName         string
}

// BuildSubject returns a new Subject from a copy of defaults and commonName.
// Values are NFC-normalised.
func BuildSubject(defaults Defaults, commonName string) (Subject, error) {
	cn := util.Normalize(strings.TrimSpace(commonName))
	if cn == "" {
		return Subject{}, fmt.Errorf("%w: common name is empty", ErrInvalidSubject)
	}
	return Subject{
		country:            util.Normalize(defaults.Country),
		state:              util.Normalize(defaults.State),
		locality:           util.Normalize(defaults.Locality),
		organization:       util.Normalize(defaults.Organization),
		organizationalUnit: util.Normalize(defaults.OrganizationalUnit),
		commonName:         cn,
	}, nil
}

// SubjectFromName converts a parsed pkix.Name. Only the first value of each
// multi-valued attribute is kept.
func SubjectFromName(name pkix.Name) Subject {
	return Subject{
		country:            first(name.Country),
		state:              first(name.Province),
		locality:           first(name.Locality),
		organization:       first(name.Organization),
		organizationalUnit: first(name.OrganizationalUnit),
		commonName:         name.CommonName,
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Get returns the value of f.
func (s Subject) Get(f Field) string {
	switch f {
	case FieldCountry:
		return s.country
	case FieldState:
		return s.state
	case FieldLocality:
		return s.locality
	case FieldOrganization:
		return s.organization
	case FieldOrganizationalUnit:
		return s.organizationalUnit
	case FieldCommonName:
		return s.commonName
	default:
		return ""
	}
}

// CommonName returns the subject's common name.
func (s Subject) CommonName() string { return s.commonName }

// Defaults returns the organisational fields of s.
func (s Subject) Defaults() Defaults {
	return Defaults{
		Country:            s.country,
		State:              s.state,
		Locality:           s.locality,
		Organization:       s.organization,
		OrganizationalUnit: s.organizationalUnit,
	}
}

// Name returns a freshly allocated pkix.Name for s. Mutating the result does
// not affect s.
func (s Subject) Name() pkix.Name {
	return pkix.Name{
		Country:            nonEmpty(s.country),
		Province:           nonEmpty(s.state),
		Locality:           nonEmpty(s.locality),
		Organization:       nonEmpty(s.organization),
		OrganizationalUnit: nonEmpty(s.organizationalUnit),
		CommonName:         s.commonName,
	}
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

// Equal reports whether s and o carry identical field values.
func (s Subject) Equal(o Subject) bool { return s == o }

// String formats s as a readable DN string.
func (s Subject) String() string { return subjectString(s.Name()) }

// subjectString formats a pkix.Name as a readable DN string.
func subjectString(name pkix.Name) string {
	var parts []string
	if name.CommonName != "" {
		parts = append(parts, "CN="+name.CommonName)
	}
	for _, ou := range name.OrganizationalUnit {
		parts = append(parts, "OU="+ou)
	}
	for _, o := range name.Organization {
		parts = append(parts, "O="+o)
	}
	for _, l := range name.Locality {
		parts = append(parts, "L="+l)
	}
	for _, p := range name.Province {
		parts = append(parts, "ST="+p)
	}
	for _, c := range name.Country {
		parts = append(parts, "C="+c)
	}
	return strings.Join(parts, ", ")
}
