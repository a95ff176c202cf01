// Package config holds the settings for one certgen run and loads them from
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/certgen/internal/util"
	"github.com/jmcleod/certgen/pki"
)

// ErrInvalidConfig is returned when a config file cannot be parsed.
var ErrInvalidConfig = errors.New("invalid config")

// Default settings.
const (
	DefaultHostname  = "localhost.localdomain"
	DefaultYears     = 1
	DefaultAlgorithm = "rsa"
)

// Config represents a certgen run. Zero values in a loaded file keep the
// defaults.
type Config struct {
	Hostname string `yaml:"hostname"`

	// KeyBits is the key strength. Zero selects the algorithm's default.
	KeyBits   int    `yaml:"keyBits"`
	Years     int    `yaml:"years"`
	CreateCA  bool   `yaml:"createCA"`
	Algorithm string `yaml:"algorithm"`
	Digest    string `yaml:"digest"`

	// OutDir is the parent of the per-host output directory. Empty means
	// the working directory.
	OutDir string `yaml:"outDir"`

	// Ledger is the path of the bbolt issuance ledger. Empty disables it.
	Ledger string `yaml:"ledger"`

	// Subject overrides the shared organisational fields, keyed by long or
	// short DN field names.
	Subject map[string]string `yaml:"subject"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Hostname:  DefaultHostname,
		Years:     DefaultYears,
		CreateCA:  true,
		Algorithm: DefaultAlgorithm,
		Digest:    string(pki.DefaultDigest),
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Request converts c into an issuance request. Names are parsed here so
// that invalid input is reported before any key is generated.
func (c Config) Request() (pki.Request, error) {
	if !c.CreateCA {
		return pki.Request{}, fmt.Errorf("%w: createCA is disabled", pki.ErrNoAuthority)
	}
	alg, err := pki.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return pki.Request{}, err
	}
	digest, err := pki.ParseDigest(c.Digest)
	if err != nil {
		return pki.Request{}, err
	}
	defaults, err := pki.ParseDefaults(pki.DefaultOrganization(), c.Subject)
	if err != nil {
		return pki.Request{}, err
	}
	bits := c.KeyBits
	if bits == 0 {
		bits = pki.DefaultBits(alg)
	}
	if c.Years <= 0 {
		return pki.Request{}, fmt.Errorf("%w: %d years", pki.ErrInvalidValidity, c.Years)
	}
	// The output directory is named after the host, so it gets the same
	// trimming and normalisation as the certificate's common name.
	host := util.Normalize(strings.TrimSpace(c.Hostname))
	if host == "" {
		return pki.Request{}, fmt.Errorf("%w: hostname is empty", pki.ErrInvalidSubject)
	}
	return pki.Request{
		CommonName: host,
		Algorithm:  alg,
		Bits:       bits,
		Years:      c.Years,
		Digest:     digest,
		Defaults:   defaults,
	}, nil
}

// IsInputError reports whether err comes from bad settings rather than a
// failure while issuing.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || pki.IsInputError(err)
}
