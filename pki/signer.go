package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"
)

// year is a validity year: 365 days, with no leap-year adjustment.
const year = 365 * 24 * time.Hour

// Validity is a certificate validity window expressed as offsets from the
// signing instant.
type Validity struct {
	NotBefore time.Duration
	NotAfter  time.Duration
}

// ValidityYears returns the window [0, years*365 days].
func ValidityYears(years int) (Validity, error) {
	if years <= 0 {
		return Validity{}, fmt.Errorf("%w: %d years", ErrInvalidValidity, years)
	}
	return Validity{NotBefore: 0, NotAfter: time.Duration(years) * year}, nil
}

// Duration returns the length of the window.
func (v Validity) Duration() time.Duration { return v.NotAfter - v.NotBefore }

// ---------------------------------------------------------------------------
// CertificateSigner
// ---------------------------------------------------------------------------

// CertificateSigner issues X.509 certificates from signing requests.
type CertificateSigner struct {
	now  func() time.Time
	rand io.Reader
}

// SignerOption configures a CertificateSigner.
type SignerOption func(*CertificateSigner)

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) SignerOption {
	return func(s *CertificateSigner) { s.now = now }
}

// WithRand overrides the entropy source used for signatures.
func WithRand(r io.Reader) SignerOption {
	return func(s *CertificateSigner) { s.rand = r }
}

// NewCertificateSigner returns a signer using the wall clock and crypto/rand.
func NewCertificateSigner(opts ...SignerOption) *CertificateSigner {
	s := &CertificateSigner{now: time.Now, rand: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign issues a certificate for req, signed by issuerKey.
//
// When issuer is nil the certificate is self-signed: its issuer is the
// request's own subject, issuerKey must be the request's key, and the result
// is a CA certificate that may not sign intermediates. Otherwise issuer must
// be a CA certificate whose public key matches issuerKey, and the result is an
// end-entity certificate for TLS server and client use.
//
// The window is [now+validity.NotBefore, now+validity.NotAfter] where now is
// the signing instant truncated to whole seconds.
func (s *CertificateSigner) Sign(req *x509.CertificateRequest, issuer *x509.Certificate, issuerKey crypto.Signer, serial *big.Int, validity Validity, digest Digest) (*x509.Certificate, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: no certificate request", ErrSigningFailure)
	}
	if err := req.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: certificate request signature invalid: %v", ErrSigningFailure, err)
	}
	if serial == nil || serial.Sign() < 0 {
		return nil, fmt.Errorf("%w: serial number must be non-negative", ErrSigningFailure)
	}
	if validity.NotAfter <= validity.NotBefore {
		return nil, fmt.Errorf("%w: notAfter offset %s is not after notBefore offset %s", ErrInvalidValidity, validity.NotAfter, validity.NotBefore)
	}
	if issuerKey == nil {
		return nil, fmt.Errorf("%w: no issuer key", ErrSigningFailure)
	}

	sigAlg, err := signatureAlgorithm(issuerKey.Public(), digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	now := s.now().UTC().Truncate(time.Second)
	template := &x509.Certificate{
		SerialNumber:          new(big.Int).Set(serial),
		Subject:               req.Subject,
		NotBefore:             now.Add(validity.NotBefore),
		NotAfter:              now.Add(validity.NotAfter),
		SignatureAlgorithm:    sigAlg,
		BasicConstraintsValid: true,
		DNSNames:              req.DNSNames,
		IPAddresses:           req.IPAddresses,
		EmailAddresses:        req.EmailAddresses,
	}

	parent := issuer
	if issuer == nil {
		if err := verifyKeyMatch(issuerKey, req.PublicKey); err != nil {
			return nil, fmt.Errorf("%w: self-signed certificate: %v", ErrSigningFailure, err)
		}
		template.IsCA = true
		template.MaxPathLenZero = true
		template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature
		parent = template
	} else {
		if !issuer.IsCA {
			return nil, fmt.Errorf("%w: issuer %q is not a CA", ErrSigningFailure, issuer.Subject.CommonName)
		}
		if err := verifyKeyMatch(issuerKey, issuer.PublicKey); err != nil {
			return nil, fmt.Errorf("%w: issuer key and certificate: %v", ErrSigningFailure, err)
		}
		template.KeyUsage = x509.KeyUsageDigitalSignature
		if _, ok := req.PublicKey.(*rsa.PublicKey); ok {
			template.KeyUsage |= x509.KeyUsageKeyEncipherment
		}
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	}

	der, err := x509.CreateCertificate(s.rand, template, parent, req.PublicKey, issuerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing issued certificate: %v", ErrSigningFailure, err)
	}

	verifier := issuer
	if verifier == nil {
		verifier = cert
	}
	if err := cert.CheckSignatureFrom(verifier); err != nil {
		return nil, fmt.Errorf("%w: issued certificate does not verify: %v", ErrSigningFailure, err)
	}
	return cert, nil
}

// verifyKeyMatch checks that signer's public key equals pub.
func verifyKeyMatch(signer crypto.Signer, pub crypto.PublicKey) error {
	signerPub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return fmt.Errorf("public key %T cannot be compared", signer.Public())
	}
	if !signerPub.Equal(pub) {
		return errors.New("public keys do not match")
	}
	return nil
}
