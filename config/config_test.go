package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmcleod/certgen/config"
	"github.com/jmcleod/certgen/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	req, err := config.Default().Request()
	require.NoError(t, err)

	assert.Equal(t, "localhost.localdomain", req.CommonName)
	assert.Equal(t, pki.AlgorithmRSA, req.Algorithm)
	assert.Equal(t, 4096, req.Bits)
	assert.Equal(t, 1, req.Years)
	assert.Equal(t, pki.DigestSHA256, req.Digest)
	assert.Equal(t, pki.DefaultOrganization(), req.Defaults)
}

func TestRequest_NormalizesHostname(t *testing.T) {
	cfg := config.Default()
	cfg.Hostname = "  cafe\u0301.example "
	req, err := cfg.Request()
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9.example", req.CommonName)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
hostname: api.example.com
algorithm: ecdsa
years: 2
digest: SHA-384
outDir: /tmp/certs
ledger: /tmp/certgen.db
subject:
  O: Acme
  organizationalUnit: Platform
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.CreateCA, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/certs", cfg.OutDir)
	assert.Equal(t, "/tmp/certgen.db", cfg.Ledger)

	req, err := cfg.Request()
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", req.CommonName)
	assert.Equal(t, pki.AlgorithmECDSA, req.Algorithm)
	assert.Equal(t, 256, req.Bits, "unset keyBits selects the algorithm default")
	assert.Equal(t, 2, req.Years)
	assert.Equal(t, pki.DigestSHA384, req.Digest)
	assert.Equal(t, "Acme", req.Defaults.Organization)
	assert.Equal(t, "Platform", req.Defaults.OrganizationalUnit)
	assert.Equal(t, "US", req.Defaults.Country)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.False(t, config.IsInputError(err))

	_, err = config.Load(writeConfig(t, "years: [1, 2"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.True(t, config.IsInputError(err))
}

func TestRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"create-ca disabled", func(c *config.Config) { c.CreateCA = false }, pki.ErrNoAuthority},
		{"algorithm", func(c *config.Config) { c.Algorithm = "xyz" }, pki.ErrUnsupportedAlgorithm},
		{"digest", func(c *config.Config) { c.Digest = "md5" }, pki.ErrUnsupportedDigest},
		{"subject field", func(c *config.Config) { c.Subject = map[string]string{"email": "x"} }, pki.ErrUnknownSubjectField},
		{"years", func(c *config.Config) { c.Years = 0 }, pki.ErrInvalidValidity},
		{"hostname", func(c *config.Config) { c.Hostname = "" }, pki.ErrInvalidSubject},
		{"blank hostname", func(c *config.Config) { c.Hostname = " \t" }, pki.ErrInvalidSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			_, err := cfg.Request()
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, config.IsInputError(err))
		})
	}
}
