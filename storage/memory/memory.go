// Package memory provides a thread-safe in-memory implementation of storage.Ledger.
package memory

import (
	"sort"
	"sync"

	"github.com/jmcleod/certgen/storage"
)

// Ledger is a thread-safe in-memory implementation of storage.Ledger.
// Suitable for testing and single-process use.
type Ledger struct {
	mu   sync.RWMutex
	data map[string]map[string]storage.Record
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a new empty in-memory Ledger.
func NewLedger() *Ledger {
	return &Ledger{data: make(map[string]map[string]storage.Record)}
}

func (l *Ledger) Put(runID string, rec storage.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	run, ok := l.data[runID]
	if !ok {
		run = make(map[string]storage.Record)
		l.data[runID] = run
	}
	if _, exists := run[rec.BaseName]; exists {
		return storage.ErrRecordExists
	}
	rec.RunID = runID
	run[rec.BaseName] = rec
	return nil
}

func (l *Ledger) Get(runID, baseName string) (*storage.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	run, ok := l.data[runID]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	rec, ok := run[baseName]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (l *Ledger) List(runID string) ([]storage.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	run, ok := l.data[runID]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	recs := make([]storage.Record, 0, len(run))
	for _, rec := range run {
		recs = append(recs, rec)
	}
	storage.SortRecords(recs)
	return recs, nil
}

func (l *Ledger) Runs() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.data))
	for id := range l.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
