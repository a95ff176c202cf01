package pki

import (
	"crypto/dsa" //nolint:staticcheck // recognised for reporting only.
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/jmcleod/certgen/internal/util"
)

// PEM block types written by certgen.
const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypeRequest     = "CERTIFICATE REQUEST"
)

// Certificate status values.
const (
	StatusActive      = "active"
	StatusExpired     = "expired"
	StatusNotYetValid = "not_yet_valid"
)

func encodeCertPEM(derBytes []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: derBytes})
}

func encodeRequestPEM(derBytes []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeRequest, Bytes: derBytes})
}

// ParseCertificatePEM decodes the first PEM certificate in data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, ErrInvalidPEM
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
	}
	return cert, nil
}

// ParseRequestPEM decodes the first PEM certificate signing request in data
// and checks its self-signature.
func ParseRequestPEM(data []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeRequest {
		return nil, ErrInvalidPEM
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: request signature invalid: %v", ErrInvalidPEM, err)
	}
	return csr, nil
}

// PEMType returns the type of the first PEM block in data, or "" if none.
func PEMType(data []byte) string {
	block, _ := pem.Decode(data)
	if block == nil {
		return ""
	}
	return block.Type
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// CertificateInfo is a readable summary of an issued certificate.
type CertificateInfo struct {
	Subject           string    `json:"subject"`
	Issuer            string    `json:"issuer"`
	SerialNumber      string    `json:"serial_number"`
	NotBefore         time.Time `json:"not_before"`
	NotAfter          time.Time `json:"not_after"`
	FingerprintSHA256 string    `json:"fingerprint_sha256"`
	KeyAlgorithm      string    `json:"key_algorithm"`
	IsCA              bool      `json:"is_ca"`
	SelfSigned        bool      `json:"self_signed"`
	DNSNames          []string  `json:"dns_names,omitempty"`
	Status            string    `json:"status"`
}

// Describe summarises cert.
func Describe(cert *x509.Certificate) CertificateInfo {
	fingerprint := sha256.Sum256(cert.Raw)
	return CertificateInfo{
		Subject:           subjectString(cert.Subject),
		Issuer:            subjectString(cert.Issuer),
		SerialNumber:      serialHex(cert.SerialNumber),
		NotBefore:         cert.NotBefore.UTC(),
		NotAfter:          cert.NotAfter.UTC(),
		FingerprintSHA256: util.HexEncode(fingerprint[:]),
		KeyAlgorithm:      keyAlgorithmString(cert.PublicKey),
		IsCA:              cert.IsCA,
		SelfSigned:        cert.CheckSignatureFrom(cert) == nil,
		DNSNames:          cert.DNSNames,
		Status:            certStatus(cert, time.Now()),
	}
}

// RequestInfo is a readable summary of a certificate signing request.
type RequestInfo struct {
	Subject      string   `json:"subject"`
	KeyAlgorithm string   `json:"key_algorithm"`
	Signature    string   `json:"signature_algorithm"`
	DNSNames     []string `json:"dns_names,omitempty"`
}

// DescribeRequest summarises csr.
func DescribeRequest(csr *x509.CertificateRequest) RequestInfo {
	return RequestInfo{
		Subject:      subjectString(csr.Subject),
		KeyAlgorithm: keyAlgorithmString(csr.PublicKey),
		Signature:    csr.SignatureAlgorithm.String(),
		DNSNames:     csr.DNSNames,
	}
}

// serialHex returns the big-endian hex form of a serial; zero is "00".
func serialHex(n *big.Int) string {
	if n.Sign() == 0 {
		return "00"
	}
	return util.HexEncode(n.Bytes())
}

// certStatus places now relative to the certificate's validity window.
func certStatus(cert *x509.Certificate, now time.Time) string {
	switch {
	case now.Before(cert.NotBefore):
		return StatusNotYetValid
	case now.After(cert.NotAfter):
		return StatusExpired
	default:
		return StatusActive
	}
}

// keyAlgorithmString returns a human-readable key algorithm description.
func keyAlgorithmString(pub any) string {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("RSA %d", pub.N.BitLen())
	case *ecdsa.PublicKey:
		return fmt.Sprintf("ECDSA %s", pub.Curve.Params().Name)
	case ed25519.PublicKey:
		return "Ed25519"
	case *dsa.PublicKey:
		return fmt.Sprintf("DSA %d", pub.P.BitLen())
	default:
		return fmt.Sprintf("%T", pub)
	}
}

// VerifyChain checks that leaf chains to ca, with ca as the only trusted
// root. The leaf's validity is checked at the current time.
func VerifyChain(ca, leaf *x509.Certificate) error {
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return err
}
