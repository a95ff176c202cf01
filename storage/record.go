package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmcleod/certgen/pki"
)

// NewRecord builds the ledger record for a persisted bundle.
func NewRecord(runID string, b *pki.Bundle, issuedAt time.Time) Record {
	info := pki.Describe(b.Certificate)
	return Record{
		RunID:             runID,
		BaseName:          b.BaseName,
		CommonName:        b.CommonName,
		Authority:         b.Authority,
		SerialNumber:      info.SerialNumber,
		Subject:           info.Subject,
		Issuer:            info.Issuer,
		NotBefore:         info.NotBefore,
		NotAfter:          info.NotAfter,
		FingerprintSHA256: info.FingerprintSHA256,
		KeyAlgorithm:      info.KeyAlgorithm,
		CertificatePEM:    string(b.CertificatePEM()),
		IssuedAt:          issuedAt.UTC(),
	}
}

// RecordingWriter forwards bundles to Next and records each successful write
// in Ledger under RunID. A bundle that fails to persist is not recorded.
type RecordingWriter struct {
	Next   pki.BundleWriter
	Ledger Ledger
	RunID  string
	Now    func() time.Time
}

// Compile-time interface check.
var _ pki.BundleWriter = (*RecordingWriter)(nil)

// Write persists b through Next, then records it.
func (w *RecordingWriter) Write(ctx context.Context, b *pki.Bundle) error {
	if err := w.Next.Write(ctx, b); err != nil {
		return err
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if err := w.Ledger.Put(w.RunID, NewRecord(w.RunID, b, now())); err != nil {
		return fmt.Errorf("%w: recording %s in ledger: %v", pki.ErrPersistenceFailure, b.BaseName, err)
	}
	return nil
}
