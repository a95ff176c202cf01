package pki

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA key generation is still offered for compatibility.
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/certgen/internal/util"
)

// Algorithm identifies an asymmetric key algorithm.
type Algorithm string

const (
	AlgorithmRSA     Algorithm = "rsa"
	AlgorithmDSA     Algorithm = "dsa"
	AlgorithmECDSA   Algorithm = "ecdsa"
	AlgorithmEd25519 Algorithm = "ed25519"
)

// RSA bounds accepted by GenerateKeyPair.
const (
	minRSABits = 1024
	maxRSABits = 16384
)

// ParseAlgorithm maps a case-insensitive algorithm name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(strings.TrimSpace(name))); alg {
	case AlgorithmRSA, AlgorithmDSA, AlgorithmECDSA, AlgorithmEd25519:
		return alg, nil
	case "ec":
		return AlgorithmECDSA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// DefaultBits returns the default key strength for alg, or 0 if alg is not
// recognised.
func DefaultBits(alg Algorithm) int {
	switch alg {
	case AlgorithmRSA:
		return 4096
	case AlgorithmDSA:
		return 2048
	case AlgorithmECDSA, AlgorithmEd25519:
		return 256
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// KeyGenerator
// ---------------------------------------------------------------------------

// KeyGenerator produces fresh key pairs for the issuer. The software
// implementation below is the default; tests substitute failing or
// deterministic generators.
type KeyGenerator interface {
	GenerateKeyPair(alg Algorithm, bits int) (*KeyPair, error)
}

// SoftwareKeyGenerator generates keys in process memory.
type SoftwareKeyGenerator struct {
	rand io.Reader // defaults to crypto/rand.Reader
}

// Compile-time interface check.
var _ KeyGenerator = (*SoftwareKeyGenerator)(nil)

// NewSoftwareKeyGenerator returns a SoftwareKeyGenerator reading entropy from
// crypto/rand.
func NewSoftwareKeyGenerator() *SoftwareKeyGenerator {
	return &SoftwareKeyGenerator{rand: rand.Reader}
}

// GenerateKeyPair generates a key pair with the default software generator.
func GenerateKeyPair(alg Algorithm, bits int) (*KeyPair, error) {
	return NewSoftwareKeyGenerator().GenerateKeyPair(alg, bits)
}

// GenerateKeyPair creates a new key pair of the given algorithm and strength.
// Two calls with identical arguments never return the same key material.
func (g *SoftwareKeyGenerator) GenerateKeyPair(alg Algorithm, bits int) (*KeyPair, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidKeySize, bits)
	}

	var key crypto.PrivateKey
	var err error

	switch alg {
	case AlgorithmRSA:
		if bits < minRSABits || bits > maxRSABits || bits%8 != 0 {
			return nil, fmt.Errorf("%w: RSA requires %d-%d bits in multiples of 8, got %d", ErrInvalidKeySize, minRSABits, maxRSABits, bits)
		}
		key, err = rsa.GenerateKey(g.rand, bits)
	case AlgorithmDSA:
		key, err = g.generateDSA(bits)
	case AlgorithmECDSA:
		curve, cerr := curveForBits(bits)
		if cerr != nil {
			return nil, cerr
		}
		key, err = ecdsa.GenerateKey(curve, g.rand)
	case AlgorithmEd25519:
		if bits != 256 {
			return nil, fmt.Errorf("%w: Ed25519 keys are 256 bits, got %d", ErrInvalidKeySize, bits)
		}
		_, key, err = ed25519.GenerateKey(g.rand)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("generating %s-%d key: %w", alg, bits, err)
	}

	return &KeyPair{algorithm: alg, bits: bits, key: key}, nil
}

func (g *SoftwareKeyGenerator) generateDSA(bits int) (*dsa.PrivateKey, error) {
	var sizes dsa.ParameterSizes
	switch bits {
	case 1024:
		sizes = dsa.L1024N160
	case 2048:
		sizes = dsa.L2048N256
	case 3072:
		sizes = dsa.L3072N256
	default:
		return nil, fmt.Errorf("%w: DSA supports 1024, 2048 or 3072 bits, got %d", ErrInvalidKeySize, bits)
	}

	priv := new(dsa.PrivateKey)
	if err := dsa.GenerateParameters(&priv.Parameters, g.rand, sizes); err != nil {
		return nil, err
	}
	if err := dsa.GenerateKey(priv, g.rand); err != nil {
		return nil, err
	}
	return priv, nil
}

func curveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: ECDSA supports 256, 384 or 521 bits, got %d", ErrInvalidKeySize, bits)
	}
}

// ---------------------------------------------------------------------------
// KeyPair
// ---------------------------------------------------------------------------

// KeyPair holds a private key and its public half. It is owned by exactly
// one Bundle; call Destroy when the bundle has been persisted.
type KeyPair struct {
	algorithm Algorithm
	bits      int
	key       crypto.PrivateKey
}

// Algorithm returns the key algorithm.
func (k *KeyPair) Algorithm() Algorithm { return k.algorithm }

// Bits returns the requested key strength.
func (k *KeyPair) Bits() int { return k.bits }

// Destroyed reports whether Destroy has been called.
func (k *KeyPair) Destroyed() bool { return k.key == nil }

// Public returns the public key, or nil once the pair has been destroyed.
func (k *KeyPair) Public() crypto.PublicKey {
	switch priv := k.key.(type) {
	case *rsa.PrivateKey:
		return &priv.PublicKey
	case *ecdsa.PrivateKey:
		return &priv.PublicKey
	case ed25519.PrivateKey:
		return priv.Public()
	case *dsa.PrivateKey:
		return &priv.PublicKey
	default:
		return nil
	}
}

// Signer returns the private key as a crypto.Signer. DSA keys do not
// implement crypto.Signer and yield ErrUnsupportedAlgorithm.
func (k *KeyPair) Signer() (crypto.Signer, error) {
	if k.Destroyed() {
		return nil, ErrKeyDestroyed
	}
	signer, ok := k.key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %s keys cannot sign X.509 structures", ErrUnsupportedAlgorithm, k.algorithm)
	}
	return signer, nil
}

// MarshalPEM encodes the private key as PKCS#8 "PRIVATE KEY" PEM into a
// memguard LockedBuffer. The caller must Destroy the returned buffer.
func (k *KeyPair) MarshalPEM() (*memguard.LockedBuffer, error) {
	if k.Destroyed() {
		return nil, ErrKeyDestroyed
	}
	der, err := x509.MarshalPKCS8PrivateKey(k.key)
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling %s private key: %v", ErrSerializationFailure, k.algorithm, err)
	}
	defer util.WipeBytes(der)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if pemBytes == nil {
		return nil, fmt.Errorf("%w: encoding private key PEM", ErrSerializationFailure)
	}
	// NewBufferFromBytes wipes pemBytes after copying it into guarded memory.
	return memguard.NewBufferFromBytes(pemBytes), nil
}

// Destroy best-effort zeroes the private scalars and drops the key. Later
// calls to Signer or MarshalPEM return ErrKeyDestroyed. Destroy is
// idempotent.
func (k *KeyPair) Destroy() {
	if k == nil || k.key == nil {
		return
	}
	switch priv := k.key.(type) {
	case *rsa.PrivateKey:
		wipeBigInt(priv.D)
		for _, p := range priv.Primes {
			wipeBigInt(p)
		}
		wipeBigInt(priv.Precomputed.Dp)
		wipeBigInt(priv.Precomputed.Dq)
		wipeBigInt(priv.Precomputed.Qinv)
	case *ecdsa.PrivateKey:
		wipeBigInt(priv.D)
	case ed25519.PrivateKey:
		util.WipeBytes(priv)
	case *dsa.PrivateKey:
		wipeBigInt(priv.X)
	}
	k.key = nil
}

// wipeBigInt zeroes the words backing n in place.
func wipeBigInt(n *big.Int) {
	if n == nil {
		return
	}
	words := n.Bits()
	for i := range words {
		words[i] = 0
	}
	n.SetInt64(0)
}

// PublicKeyBits returns the strength of a public key in bits.
func PublicKeyBits(pub crypto.PublicKey) int {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	case *dsa.PublicKey:
		return pub.P.BitLen()
	default:
		return 0
	}
}
