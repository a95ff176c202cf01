package pki_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmcleod/certgen/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRequest returns a fast ECDSA request for cn.
func testRequest(cn string) pki.Request {
	return pki.Request{
		CommonName: cn,
		Algorithm:  pki.AlgorithmECDSA,
		Bits:       256,
		Years:      1,
		Digest:     pki.DefaultDigest,
		Defaults:   pki.DefaultOrganization(),
	}
}

// writtenBundle captures what a writer saw while the key was still live.
type writtenBundle struct {
	baseName string
	keyPEM   string
	certPEM  string
}

type recordingWriter struct {
	mu      sync.Mutex
	written []writtenBundle
	failOn  string
}

func (w *recordingWriter) Write(_ context.Context, b *pki.Bundle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b.BaseName == w.failOn {
		return errors.Join(pki.ErrPersistenceFailure, errors.New("disk full"))
	}
	key, err := b.KeyPEM()
	if err != nil {
		return err
	}
	defer key.Destroy()
	w.written = append(w.written, writtenBundle{
		baseName: b.BaseName,
		keyPEM:   string(key.Bytes()),
		certPEM:  string(b.CertificatePEM()),
	})
	return nil
}

func (w *recordingWriter) names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var names []string
	for _, b := range w.written {
		names = append(names, b.baseName)
	}
	return names
}

// failingKeys fails every key generation after the first n.
type failingKeys struct {
	n     int
	calls int
}

func (g *failingKeys) GenerateKeyPair(alg pki.Algorithm, bits int) (*pki.KeyPair, error) {
	g.calls++
	if g.calls > g.n {
		return nil, errors.New("entropy exhausted")
	}
	return pki.GenerateKeyPair(alg, bits)
}

func TestIssueChain(t *testing.T) {
	w := &recordingWriter{}
	issuer := pki.NewIssuer()
	req := pki.Request{
		CommonName: "test.local",
		Algorithm:  pki.AlgorithmRSA,
		Bits:       2048,
		Years:      1,
		Digest:     pki.DigestSHA256,
		Defaults:   pki.DefaultOrganization(),
	}

	chain, err := issuer.IssueChain(context.Background(), req, w)
	require.NoError(t, err)
	require.NotNil(t, chain.Authority)
	require.NotNil(t, chain.Leaf)

	assert.Equal(t, []string{"test-local-CA", "test-local"}, w.names())
	for _, b := range w.written {
		assert.Contains(t, b.keyPEM, "BEGIN PRIVATE KEY")
		assert.Contains(t, b.certPEM, "BEGIN CERTIFICATE")
	}

	ca, leaf := chain.Authority.Certificate, chain.Leaf.Certificate
	assert.Zero(t, ca.SerialNumber.Sign())
	assert.Equal(t, ca.Subject.String(), ca.Issuer.String())
	assert.Equal(t, ca.Subject.String(), leaf.Issuer.String())
	assert.NotEqual(t, leaf.Subject.String(), leaf.Issuer.String())
	assert.Equal(t, "test.local CA", ca.Subject.CommonName)
	assert.Equal(t, "test.local", leaf.Subject.CommonName)
	assert.Equal(t, ca.Subject.Organization, leaf.Subject.Organization)
	assert.Equal(t, "test.local", chain.Authority.CommonName)
	assert.Zero(t, leaf.SerialNumber.Cmp(pki.LeafSerial("test.local")))
	assert.Equal(t, 2048, pki.PublicKeyBits(leaf.PublicKey))
	assert.Equal(t, 365*24*time.Hour, leaf.NotAfter.Sub(leaf.NotBefore))
	require.NoError(t, pki.VerifyChain(ca, leaf))

	// Keys are released once the chain has been persisted.
	assert.True(t, chain.Authority.Key.Destroyed())
	assert.True(t, chain.Leaf.Key.Destroyed())
}

func TestIssueChain_AuthorityWriteFails(t *testing.T) {
	w := &recordingWriter{failOn: "test-local-CA"}
	keys := &failingKeys{n: 2}
	issuer := pki.NewIssuer(pki.WithKeyGenerator(keys))

	chain, err := issuer.IssueChain(context.Background(), testRequest("test.local"), w)
	assert.ErrorIs(t, err, pki.ErrPersistenceFailure)
	assert.Nil(t, chain)
	assert.Empty(t, w.names())
	assert.Equal(t, 1, keys.calls, "leaf key must not be generated")
}

func TestIssueChain_LeafFailureKeepsAuthority(t *testing.T) {
	w := &recordingWriter{}
	issuer := pki.NewIssuer(pki.WithKeyGenerator(&failingKeys{n: 1}))

	chain, err := issuer.IssueChain(context.Background(), testRequest("test.local"), w)
	require.Error(t, err)
	require.NotNil(t, chain)
	assert.NotNil(t, chain.Authority)
	assert.Nil(t, chain.Leaf)
	assert.Equal(t, []string{"test-local-CA"}, w.names())
	assert.True(t, chain.Authority.Key.Destroyed())
}

func TestIssueChain_LeafWriteFails(t *testing.T) {
	w := &recordingWriter{failOn: "test-local"}
	issuer := pki.NewIssuer()

	chain, err := issuer.IssueChain(context.Background(), testRequest("test.local"), w)
	assert.ErrorIs(t, err, pki.ErrPersistenceFailure)
	require.NotNil(t, chain)
	assert.Nil(t, chain.Leaf)
	assert.Equal(t, []string{"test-local-CA"}, w.names())
}

func TestIssueChain_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pki.Request)
		want   error
	}{
		{"zero years", func(r *pki.Request) { r.Years = 0 }, pki.ErrInvalidValidity},
		{"bad digest", func(r *pki.Request) { r.Digest = "md5" }, pki.ErrUnsupportedDigest},
		{"bad algorithm", func(r *pki.Request) { r.Algorithm = "xyz" }, pki.ErrUnsupportedAlgorithm},
		{"bad key size", func(r *pki.Request) { r.Bits = 0 }, pki.ErrInvalidKeySize},
		{"empty common name", func(r *pki.Request) { r.CommonName = "" }, pki.ErrInvalidSubject},
		{"dsa cannot sign", func(r *pki.Request) { r.Algorithm, r.Bits = pki.AlgorithmDSA, 1024 }, pki.ErrUnsupportedAlgorithm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest("test.local")
			tt.mutate(&req)
			w := &recordingWriter{}

			chain, err := pki.NewIssuer().IssueChain(context.Background(), req, w)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, pki.IsInputError(err))
			assert.Nil(t, chain)
			assert.Empty(t, w.names())
		})
	}
}

func TestIssueLeaf_NoAuthority(t *testing.T) {
	issuer := pki.NewIssuer()
	req := testRequest("test.local")

	_, err := issuer.IssueLeaf(req, nil)
	assert.ErrorIs(t, err, pki.ErrNoAuthority)

	ca, err := issuer.IssueAuthority(req)
	require.NoError(t, err)
	defer ca.Destroy()
	leaf, err := issuer.IssueLeaf(req, ca)
	require.NoError(t, err)
	defer leaf.Destroy()

	_, err = issuer.IssueLeaf(req, leaf)
	assert.ErrorIs(t, err, pki.ErrNoAuthority)
}

func TestIssueLeaf_SANs(t *testing.T) {
	issuer := pki.NewIssuer()

	ca, err := issuer.IssueAuthority(testRequest("Example Root"))
	require.NoError(t, err)
	defer ca.Destroy()
	assert.Empty(t, ca.Certificate.DNSNames)
	assert.Equal(t, "Example Root-CA", ca.BaseName)
	assert.Equal(t, "Example Root CA", ca.Certificate.Subject.CommonName)

	leaf, err := issuer.IssueLeaf(testRequest("Example Service"), ca)
	require.NoError(t, err)
	defer leaf.Destroy()
	assert.Empty(t, leaf.Certificate.DNSNames, "a non-hostname common name carries no SAN")
}

func TestIsHostname(t *testing.T) {
	for name, want := range map[string]bool{
		"localhost":             true,
		"localhost.localdomain": true,
		"test.local":            true,
		"a-b.example.com.":      true,
		"":                      false,
		"Example Root":          false,
		"-bad.example":          false,
		"bad-.example":          false,
		"a..b":                  false,
		"10.0.0.1":              false,
		"under_score.example":   false,
	} {
		assert.Equal(t, want, pki.IsHostname(name), name)
	}
}

func TestBaseFilename(t *testing.T) {
	assert.Equal(t, "test-local-CA", pki.BaseFilename("test.local", true))
	assert.Equal(t, "test-local", pki.BaseFilename("test.local", false))
	assert.Equal(t, "localhost", pki.BaseFilename("localhost", false))
}
