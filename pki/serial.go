package pki

import (
	"crypto/sha256"
	"math/big"
)

// maxSerialOctets is the RFC 5280 upper bound on the encoded serial number.
const maxSerialOctets = 20

// AuthoritySerial returns the serial reserved for self-signed authority
// certificates: zero.
func AuthoritySerial() *big.Int {
	return new(big.Int)
}

// LeafSerial derives a deterministic leaf serial from commonName. The SHA-256
// digest of the UTF-8 name is truncated to its leading 20 octets and the
// most significant bit is cleared, so the value is non-negative and its DER
// INTEGER encoding never exceeds 20 octets.
func LeafSerial(commonName string) *big.Int {
	sum := sha256.Sum256([]byte(commonName))
	b := sum[:maxSerialOctets]
	b[0] &= 0x7f
	return new(big.Int).SetBytes(b)
}

// FullDigestSerial returns the untruncated 256-bit digest of commonName as a
// big-endian integer. It is for reporting only and is never used to sign.
func FullDigestSerial(commonName string) *big.Int {
	sum := sha256.Sum256([]byte(commonName))
	return new(big.Int).SetBytes(sum[:])
}
