package pki

import "errors"

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrUnsupportedAlgorithm is returned when a key algorithm is not
	// recognised, or cannot be used for the requested operation.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

	// ErrInvalidKeySize is returned when the requested key strength is
	// non-positive or not supported by the algorithm.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrUnknownSubjectField is returned when a distinguished-name field
	// outside the enumerated set is supplied.
	ErrUnknownSubjectField = errors.New("unknown subject field")

	// ErrInvalidSubject is returned when a subject cannot be built from the
	// supplied values (e.g. an empty common name).
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrUnsupportedDigest is returned for an unrecognised digest name or a
	// digest that cannot be combined with the signing key.
	ErrUnsupportedDigest = errors.New("unsupported digest")

	// ErrSigningFailure is returned when a certificate cannot be issued.
	ErrSigningFailure = errors.New("certificate signing failed")

	// ErrInvalidValidity is returned when a validity window is empty or
	// inverted.
	ErrInvalidValidity = errors.New("invalid validity window")

	// ErrSerializationFailure is returned when an artifact cannot be PEM
	// encoded.
	ErrSerializationFailure = errors.New("serialization failed")

	// ErrPersistenceFailure is returned by bundle writers on I/O errors.
	ErrPersistenceFailure = errors.New("persistence failed")

	// ErrKeyDestroyed is returned when a key pair is used after Destroy.
	ErrKeyDestroyed = errors.New("key material has been destroyed")

	// ErrInvalidPEM is returned when PEM data cannot be decoded or parsed.
	ErrInvalidPEM = errors.New("invalid PEM data")

	// ErrNoAuthority is returned when a leaf is requested without an
	// authority bundle issued in the same run.
	ErrNoAuthority = errors.New("leaf issuance requires an authority bundle")
)

// IsInputError reports whether err was caused by invalid caller input rather
// than a failure while issuing or persisting.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrUnsupportedAlgorithm,
		ErrInvalidKeySize,
		ErrUnknownSubjectField,
		ErrInvalidSubject,
		ErrUnsupportedDigest,
		ErrInvalidValidity,
		ErrNoAuthority,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
