package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"strings"
)

// Digest names the hash algorithm used in a signature.
type Digest string

const (
	DigestSHA256 Digest = "sha256"
	DigestSHA384 Digest = "sha384"
	DigestSHA512 Digest = "sha512"

	// DefaultDigest is used when no digest is configured.
	DefaultDigest = DigestSHA256
)

// ParseDigest maps names such as "SHA-256", "sha256" or "sha-384" to a
// Digest. An empty name selects DefaultDigest.
func ParseDigest(name string) (Digest, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, "_", "")
	switch d := Digest(n); d {
	case "":
		return DefaultDigest, nil
	case DigestSHA256, DigestSHA384, DigestSHA512:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDigest, name)
	}
}

// signatureAlgorithm selects the x509 signature algorithm for a signing key
// and digest. Ed25519 always signs the message directly, so the digest is
// only validated.
func signatureAlgorithm(pub crypto.PublicKey, digest Digest) (x509.SignatureAlgorithm, error) {
	d, err := ParseDigest(string(digest))
	if err != nil {
		return x509.UnknownSignatureAlgorithm, err
	}

	switch pub.(type) {
	case *rsa.PublicKey:
		switch d {
		case DigestSHA384:
			return x509.SHA384WithRSA, nil
		case DigestSHA512:
			return x509.SHA512WithRSA, nil
		default:
			return x509.SHA256WithRSA, nil
		}
	case *ecdsa.PublicKey:
		switch d {
		case DigestSHA384:
			return x509.ECDSAWithSHA384, nil
		case DigestSHA512:
			return x509.ECDSAWithSHA512, nil
		default:
			return x509.ECDSAWithSHA256, nil
		}
	case ed25519.PublicKey:
		return x509.PureEd25519, nil
	default:
		return x509.UnknownSignatureAlgorithm, fmt.Errorf("%w: no signature algorithm for %T", ErrUnsupportedAlgorithm, pub)
	}
}

// BuildRequest creates a certificate signing request binding key's public
// key to subject, self-signed with key's private key to prove possession.
// dnsNames are carried as requested subject alternative names.
func BuildRequest(key *KeyPair, subject Subject, digest Digest, dnsNames ...string) (*x509.CertificateRequest, error) {
	signer, err := key.Signer()
	if err != nil {
		return nil, err
	}
	sigAlg, err := signatureAlgorithm(signer.Public(), digest)
	if err != nil {
		return nil, err
	}

	template := &x509.CertificateRequest{
		Subject:            subject.Name(),
		SignatureAlgorithm: sigAlg,
		DNSNames:           dnsNames,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, signer)
	if err != nil {
		return nil, fmt.Errorf("%w: creating certificate request: %v", ErrSigningFailure, err)
	}

	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing certificate request: %v", ErrSigningFailure, err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: certificate request signature invalid: %v", ErrSigningFailure, err)
	}
	return csr, nil
}
