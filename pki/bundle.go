package pki

import (
	"context"
	"crypto/x509"
	"strings"

	"github.com/awnumar/memguard"
)

const (
	// authoritySuffix marks the base filename of the authority bundle.
	authoritySuffix = "-CA"
	// authorityCNSuffix is appended to the host name in the authority's
	// common name.
	authorityCNSuffix = " CA"
)

// Bundle groups one certificate with its signing request and key pair under
// a base filename. The bundle owns Key; call Destroy once it is persisted.
// CommonName is the requested host name for both roles; the authority's
// certificate carries AuthorityCommonName(CommonName).
type Bundle struct {
	BaseName    string
	CommonName  string
	Authority   bool
	Request     *x509.CertificateRequest
	Key         *KeyPair
	Certificate *x509.Certificate
}

// BundleWriter persists a bundle's artifacts. Implementations must return an
// error wrapping ErrPersistenceFailure on any I/O failure.
type BundleWriter interface {
	Write(ctx context.Context, b *Bundle) error
}

// BaseFilename derives the base filename for a certificate: the common name
// with dots replaced by dashes, suffixed with "-CA" for the authority.
func BaseFilename(commonName string, authority bool) string {
	name := strings.ReplaceAll(commonName, ".", "-")
	if authority {
		name += authoritySuffix
	}
	return name
}

// AuthorityCommonName returns the authority's common name for host.
func AuthorityCommonName(host string) string { return host + authorityCNSuffix }

// AssembleBundle groups the artifacts of one issuance.
func AssembleBundle(commonName string, authority bool, req *x509.CertificateRequest, key *KeyPair, cert *x509.Certificate) *Bundle {
	return &Bundle{
		BaseName:    BaseFilename(commonName, authority),
		CommonName:  commonName,
		Authority:   authority,
		Request:     req,
		Key:         key,
		Certificate: cert,
	}
}

// CertificatePEM returns the PEM-encoded certificate.
func (b *Bundle) CertificatePEM() []byte { return encodeCertPEM(b.Certificate.Raw) }

// RequestPEM returns the PEM-encoded certificate signing request.
func (b *Bundle) RequestPEM() []byte { return encodeRequestPEM(b.Request.Raw) }

// KeyPEM returns the PKCS#8 private key PEM in a LockedBuffer the caller
// must Destroy.
func (b *Bundle) KeyPEM() (*memguard.LockedBuffer, error) { return b.Key.MarshalPEM() }

// Destroy wipes the bundle's key material. It is safe to call more than once
// and on a nil bundle.
func (b *Bundle) Destroy() {
	if b == nil {
		return
	}
	b.Key.Destroy()
}
