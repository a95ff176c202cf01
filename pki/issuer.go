// Package pki issues a self-signed certificate authority and a leaf
// certificate signed by it. Key pairs, subjects, signing requests, serial
// numbers and certificates are built in memory; persistence is delegated to a
// BundleWriter so the core never touches the filesystem.
package pki

import (
	"context"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// Request describes one CA-plus-leaf issuance.
type Request struct {
	CommonName string
	Algorithm  Algorithm
	Bits       int
	Years      int
	Digest     Digest
	Defaults   Defaults
}

// Chain reports what IssueChain persisted. Key material has already been
// destroyed when it is returned; certificates and requests remain readable.
type Chain struct {
	Authority *Bundle
	Leaf      *Bundle
}

// Issuer runs the issuance control flow.
type Issuer struct {
	keys   KeyGenerator
	signer *CertificateSigner
	log    zerolog.Logger
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithKeyGenerator overrides the key generator.
func WithKeyGenerator(g KeyGenerator) IssuerOption {
	return func(i *Issuer) { i.keys = g }
}

// WithCertificateSigner overrides the certificate signer.
func WithCertificateSigner(s *CertificateSigner) IssuerOption {
	return func(i *Issuer) { i.signer = s }
}

// WithLogger sets the issuer's logger. The default discards everything.
func WithLogger(l zerolog.Logger) IssuerOption {
	return func(i *Issuer) { i.log = l }
}

// NewIssuer returns an Issuer backed by software keys and the wall clock.
func NewIssuer(opts ...IssuerOption) *Issuer {
	i := &Issuer{
		keys:   NewSoftwareKeyGenerator(),
		signer: NewCertificateSigner(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueAuthority issues the self-signed authority bundle: serial zero,
// issuer equal to subject, common name AuthorityCommonName(req.CommonName).
func (i *Issuer) IssueAuthority(req Request) (*Bundle, error) {
	return i.issue(req, nil)
}

// IssueLeaf issues the leaf bundle for req, signed with the authority's key
// and chained to its certificate. The authority's key is borrowed, not owned.
func (i *Issuer) IssueLeaf(req Request, authority *Bundle) (*Bundle, error) {
	if authority == nil || !authority.Authority || authority.Certificate == nil {
		return nil, ErrNoAuthority
	}
	return i.issue(req, authority)
}

func (i *Issuer) issue(req Request, authority *Bundle) (*Bundle, error) {
	isAuthority := authority == nil
	role := "leaf"
	if isAuthority {
		role = "authority"
	}
	logger := i.log.With().Str("role", role).Str("common_name", req.CommonName).Logger()

	validity, err := ValidityYears(req.Years)
	if err != nil {
		return nil, err
	}
	digest, err := ParseDigest(string(req.Digest))
	if err != nil {
		return nil, err
	}

	key, err := i.keys.GenerateKeyPair(req.Algorithm, req.Bits)
	if err != nil {
		return nil, err
	}
	// The key is owned by the bundle once assembled; until then release it
	// ourselves on failure.
	assembled := false
	defer func() {
		if !assembled {
			key.Destroy()
		}
	}()
	logger.Debug().Str("algorithm", string(req.Algorithm)).Int("bits", req.Bits).Msg("generated key pair")

	subject, err := BuildSubject(req.Defaults, req.CommonName)
	if err != nil {
		return nil, err
	}
	host := subject.CommonName()
	if isAuthority {
		// The leaf must not look self-issued, so the authority's DN differs.
		subject, err = BuildSubject(req.Defaults, AuthorityCommonName(host))
		if err != nil {
			return nil, err
		}
	}

	var dnsNames []string
	if !isAuthority && isHostname(host) {
		dnsNames = []string{host}
	}
	csr, err := BuildRequest(key, subject, digest, dnsNames...)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("subject", subject.String()).Msg("built certificate request")

	cert, serial, err := i.sign(csr, key, authority, validity, digest)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("serial", serial.Text(16)).
		Time("not_before", cert.NotBefore).
		Time("not_after", cert.NotAfter).
		Msg("signed certificate")

	assembled = true
	b := AssembleBundle(host, isAuthority, csr, key, cert)
	logger.Info().Str("base_name", b.BaseName).Msg("issued certificate")
	return b, nil
}

// sign self-signs csr with key when authority is nil, and otherwise signs it
// with the authority's key under the authority's certificate.
func (i *Issuer) sign(csr *x509.CertificateRequest, key *KeyPair, authority *Bundle, validity Validity, digest Digest) (*x509.Certificate, *big.Int, error) {
	if authority == nil {
		signer, err := key.Signer()
		if err != nil {
			return nil, nil, err
		}
		serial := AuthoritySerial()
		cert, err := i.signer.Sign(csr, nil, signer, serial, validity, digest)
		return cert, serial, err
	}

	caSigner, err := authority.Key.Signer()
	if err != nil {
		return nil, nil, fmt.Errorf("authority key: %w", err)
	}
	serial := LeafSerial(csr.Subject.CommonName)
	cert, err := i.signer.Sign(csr, authority.Certificate, caSigner, serial, validity, digest)
	return cert, serial, err
}

// IssueChain issues the authority, persists it, then issues and persists the
// leaf. A failure while issuing or writing the authority returns before any
// leaf work starts; a leaf failure leaves the persisted authority in place.
// Both bundles' keys are destroyed before IssueChain returns.
func (i *Issuer) IssueChain(ctx context.Context, req Request, w BundleWriter) (*Chain, error) {
	ca, err := i.IssueAuthority(req)
	if err != nil {
		return nil, fmt.Errorf("issuing authority: %w", err)
	}
	defer ca.Destroy()

	if err := w.Write(ctx, ca); err != nil {
		return nil, fmt.Errorf("writing authority bundle: %w", err)
	}

	leaf, err := i.IssueLeaf(req, ca)
	if err != nil {
		return &Chain{Authority: ca}, fmt.Errorf("issuing leaf: %w", err)
	}
	defer leaf.Destroy()

	if err := w.Write(ctx, leaf); err != nil {
		return &Chain{Authority: ca}, fmt.Errorf("writing leaf bundle: %w", err)
	}
	return &Chain{Authority: ca, Leaf: leaf}, nil
}

// isHostname reports whether name can be carried as a DNS subject
// alternative name.
func isHostname(name string) bool {
	if name == "" || len(name) > 253 || net.ParseIP(name) != nil {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			default:
				return false
			}
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
	}
	return true
}
