// Package memstore is an in-process ledger.Store, mirroring the Rust
// pack's ProofMap::insert linearization: the insertion check and the
// write happen under the same lock, so a concurrent insert of the same
// Y can never both succeed.
package memstore

import (
	"sync"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/ledger"
)

type Store struct {
	mu      sync.Mutex
	entries map[string]ledger.SpentProofEntry
}

func New() *Store {
	return &Store{entries: make(map[string]ledger.SpentProofEntry)}
}

func (s *Store) InsertIfAbsent(entries []ledger.SpentProofEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, exists := s.entries[e.Y]; exists {
			return wcerr.ProofsAlreadySpent
		}
	}
	for _, e := range entries {
		s.entries[e.Y] = e
	}
	return nil
}

func (s *Store) Contains(ys []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(ys))
	for _, y := range ys {
		_, ok := s.entries[y]
		out[y] = ok
	}
	return out, nil
}

func (s *Store) Remove(ys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, y := range ys {
		delete(s.entries, y)
	}
	return nil
}

func (s *Store) Close() error { return nil }
