package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmcleod/certgen/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() pki.Request {
	return pki.Request{
		CommonName: "test.local",
		Algorithm:  pki.AlgorithmECDSA,
		Bits:       256,
		Years:      1,
		Digest:     pki.DefaultDigest,
		Defaults:   pki.DefaultOrganization(),
	}
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	chain, err := pki.NewIssuer().IssueChain(context.Background(), testRequest(), w)
	require.NoError(t, err)

	for _, base := range []string{"test-local-CA", "test-local"} {
		csrPath, keyPath, certPath := w.Paths(base)

		csrPEM, err := os.ReadFile(csrPath)
		require.NoError(t, err)
		_, err = pki.ParseRequestPEM(csrPEM)
		require.NoError(t, err)

		keyPEM, err := os.ReadFile(keyPath)
		require.NoError(t, err)
		assert.Equal(t, "PRIVATE KEY", pki.PEMType(keyPEM))

		certPEM, err := os.ReadFile(certPath)
		require.NoError(t, err)
		_, err = pki.ParseCertificatePEM(certPEM)
		require.NoError(t, err)

		keyInfo, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, privateFileMode, keyInfo.Mode().Perm())
		certInfo, err := os.Stat(certPath)
		require.NoError(t, err)
		assert.Equal(t, publicFileMode, certInfo.Mode().Perm())
	}

	caPEM, err := os.ReadFile(filepath.Join(dir, "test-local-CA.cert"))
	require.NoError(t, err)
	ca, err := pki.ParseCertificatePEM(caPEM)
	require.NoError(t, err)
	leafPEM, err := os.ReadFile(filepath.Join(dir, "test-local.cert"))
	require.NoError(t, err)
	leaf, err := pki.ParseCertificatePEM(leafPEM)
	require.NoError(t, err)
	require.NoError(t, pki.VerifyChain(ca, leaf))
	assert.Equal(t, chain.Leaf.Certificate.Raw, leaf.Raw)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestWriter_MissingDir(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing"))

	chain, err := pki.NewIssuer().IssueChain(context.Background(), testRequest(), w)
	assert.ErrorIs(t, err, pki.ErrPersistenceFailure)
	assert.Nil(t, chain)
}

func TestWriter_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ca, err := pki.NewIssuer().IssueAuthority(testRequest())
	require.NoError(t, err)
	defer ca.Destroy()

	err = NewWriter(path).Write(context.Background(), ca)
	assert.ErrorIs(t, err, pki.ErrPersistenceFailure)
}

func TestWriter_CanceledContext(t *testing.T) {
	ca, err := pki.NewIssuer().IssueAuthority(testRequest())
	require.NoError(t, err)
	defer ca.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewWriter(t.TempDir()).Write(ctx, ca)
	assert.ErrorIs(t, err, pki.ErrPersistenceFailure)
}

func TestWriter_TightensExistingKeyMode(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	_, keyPath, _ := w.Paths("test-local-CA")
	require.NoError(t, os.WriteFile(keyPath, []byte("stale"), 0o666))

	ca, err := pki.NewIssuer().IssueAuthority(testRequest())
	require.NoError(t, err)
	defer ca.Destroy()
	require.NoError(t, w.Write(context.Background(), ca))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, privateFileMode, info.Mode().Perm())
}
