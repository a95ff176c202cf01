package pki_test

import (
	"crypto"
	"crypto/x509"
	"testing"

	"github.com/jmcleod/certgen/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDigest(t *testing.T) {
	for in, want := range map[string]pki.Digest{
		"":        pki.DigestSHA256,
		"sha256":  pki.DigestSHA256,
		"SHA-256": pki.DigestSHA256,
		"sha_384": pki.DigestSHA384,
		"SHA512":  pki.DigestSHA512,
	} {
		got, err := pki.ParseDigest(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"md5", "sha1", "sha3-256"} {
		_, err := pki.ParseDigest(in)
		assert.ErrorIs(t, err, pki.ErrUnsupportedDigest, in)
	}
}

func newSubject(t *testing.T, cn string) pki.Subject {
	t.Helper()
	s, err := pki.BuildSubject(pki.DefaultOrganization(), cn)
	require.NoError(t, err)
	return s
}

func newKey(t *testing.T, alg pki.Algorithm, bits int) *pki.KeyPair {
	t.Helper()
	key, err := pki.GenerateKeyPair(alg, bits)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	return key
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		alg    pki.Algorithm
		bits   int
		digest pki.Digest
		want   x509.SignatureAlgorithm
	}{
		{"rsa sha256", pki.AlgorithmRSA, 2048, pki.DigestSHA256, x509.SHA256WithRSA},
		{"rsa sha512", pki.AlgorithmRSA, 2048, pki.DigestSHA512, x509.SHA512WithRSA},
		{"ecdsa sha384", pki.AlgorithmECDSA, 384, pki.DigestSHA384, x509.ECDSAWithSHA384},
		{"ed25519", pki.AlgorithmEd25519, 256, pki.DigestSHA256, x509.PureEd25519},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := newKey(t, tt.alg, tt.bits)
			subject := newSubject(t, "test.local")

			csr, err := pki.BuildRequest(key, subject, tt.digest, "test.local")
			require.NoError(t, err)

			require.NoError(t, csr.CheckSignature())
			assert.Equal(t, tt.want, csr.SignatureAlgorithm)
			assert.Equal(t, "test.local", csr.Subject.CommonName)
			assert.Equal(t, []string{"Evil Corp"}, csr.Subject.Organization)
			assert.Equal(t, []string{"test.local"}, csr.DNSNames)
			assert.True(t, subject.Equal(pki.SubjectFromName(csr.Subject)))

			pub, ok := csr.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
			require.True(t, ok)
			assert.True(t, pub.Equal(key.Public()))
		})
	}
}

func TestBuildRequest_Errors(t *testing.T) {
	subject := newSubject(t, "test.local")

	t.Run("unsupported digest", func(t *testing.T) {
		_, err := pki.BuildRequest(newKey(t, pki.AlgorithmECDSA, 256), subject, "md5")
		assert.ErrorIs(t, err, pki.ErrUnsupportedDigest)
	})

	t.Run("dsa key", func(t *testing.T) {
		_, err := pki.BuildRequest(newKey(t, pki.AlgorithmDSA, 1024), subject, pki.DefaultDigest)
		assert.ErrorIs(t, err, pki.ErrUnsupportedAlgorithm)
	})

	t.Run("destroyed key", func(t *testing.T) {
		key := newKey(t, pki.AlgorithmECDSA, 256)
		key.Destroy()
		_, err := pki.BuildRequest(key, subject, pki.DefaultDigest)
		assert.ErrorIs(t, err, pki.ErrKeyDestroyed)
	})
}
