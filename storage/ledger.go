// Package storage records what certgen issued and persists bundles to disk.
//
// A Ledger keeps one Record per persisted bundle, grouped by the run that
// produced it. Records carry public material only: certificates, never
// private keys.
package storage

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist in a run.
	ErrNotFound = errors.New("record not found")

	// ErrRunNotFound is returned when no records exist for a run ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrRecordExists is returned when a run already holds a record with the
	// same base name. Records are write-once.
	ErrRecordExists = errors.New("record already exists")
)

// Record describes one persisted bundle.
type Record struct {
	RunID             string    `json:"run_id"`
	BaseName          string    `json:"base_name"`
	CommonName        string    `json:"common_name"`
	Authority         bool      `json:"authority"`
	SerialNumber      string    `json:"serial_number"`
	Subject           string    `json:"subject"`
	Issuer            string    `json:"issuer"`
	NotBefore         time.Time `json:"not_before"`
	NotAfter          time.Time `json:"not_after"`
	FingerprintSHA256 string    `json:"fingerprint_sha256"`
	KeyAlgorithm      string    `json:"key_algorithm"`
	CertificatePEM    string    `json:"certificate_pem"`
	IssuedAt          time.Time `json:"issued_at"`
}

// Ledger stores issuance records.
type Ledger interface {
	// Put stores rec under runID. It returns ErrRecordExists if the run
	// already has a record with rec.BaseName.
	Put(runID string, rec Record) error
	// Get returns the record for baseName within runID.
	Get(runID string, baseName string) (*Record, error)
	// List returns the records of runID ordered by issuance time.
	List(runID string) ([]Record, error)
	// Runs returns every run ID with at least one record.
	Runs() ([]string, error)
}

// SortRecords orders records by issuance time. Ties put the authority first,
// then order by base name.
func SortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].IssuedAt.Equal(recs[j].IssuedAt) {
			return recs[i].IssuedAt.Before(recs[j].IssuedAt)
		}
		if recs[i].Authority != recs[j].Authority {
			return recs[i].Authority
		}
		return recs[i].BaseName < recs[j].BaseName
	})
}
