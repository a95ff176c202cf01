// Package bbolt provides a BBolt-backed issuance ledger.
package bbolt

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/certgen/storage"
	"go.etcd.io/bbolt"
)

// Store implements storage.Ledger backed by a BBolt database. Each run gets
// its own bucket keyed by run ID; records are JSON values keyed by base name.
type Store struct {
	db *bbolt.DB
}

var _ storage.Ledger = (*Store)(nil)

// NewLedger returns a Ledger backed by the given BBolt database.
func NewLedger(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// NewLedgerFromFile opens a BBolt database at the given path and returns a new Ledger.
func NewLedgerFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewLedger(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(runID string, rec storage.Record) error {
	rec.RunID = runID
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		key := []byte(rec.BaseName)
		if b.Get(key) != nil {
			return fmt.Errorf("%s/%s: %w", runID, rec.BaseName, storage.ErrRecordExists)
		}
		return b.Put(key, data)
	})
}

func (s *Store) Get(runID, baseName string) (*storage.Record, error) {
	var rec storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runID))
		if b == nil {
			return fmt.Errorf("%s: %w", runID, storage.ErrRunNotFound)
		}
		data := b.Get([]byte(baseName))
		if data == nil {
			return fmt.Errorf("%s/%s: %w", runID, baseName, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) List(runID string) ([]storage.Record, error) {
	var recs []storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runID))
		if b == nil {
			return fmt.Errorf("%s: %w", runID, storage.ErrRunNotFound)
		}
		return b.ForEach(func(_, v []byte) error {
			var rec storage.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	storage.SortRecords(recs)
	return recs, nil
}

func (s *Store) Runs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			ids = append(ids, string(name))
			return nil
		})
	})
	return ids, err
}
