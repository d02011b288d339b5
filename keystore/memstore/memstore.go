// Package memstore is an in-process keystore.Store, the idiomatic Go
// analogue of the Rust pack's persistence::inmemory fixtures: a mutex
// around a couple of maps, enough to drive unit and property tests
// without a database.
package memstore

import (
	"sync"

	"github.com/wildcat-ecash/backoffice/cashu"
	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/keystore"
)

type Store struct {
	mu         sync.Mutex
	keysets    map[string]keystore.KeysetRecord
	signatures map[string]cashu.BlindedSignature
}

func New() *Store {
	return &Store{
		keysets:    make(map[string]keystore.KeysetRecord),
		signatures: make(map[string]cashu.BlindedSignature),
	}
}

func (s *Store) SaveKeyset(rec keystore.KeysetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keysets[rec.Id]; exists {
		return wcerr.New(wcerr.Conflict, "keyset already exists")
	}
	s.keysets[rec.Id] = rec
	return nil
}

func (s *Store) GetKeyset(id string) (keystore.KeysetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keysets[id]
	if !ok {
		return keystore.KeysetRecord{}, wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	return rec, nil
}

func (s *Store) GetKeysetByQuoteId(quoteId string) (keystore.KeysetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.keysets {
		if rec.QuoteId == quoteId {
			return rec, nil
		}
	}
	return keystore.KeysetRecord{}, wcerr.New(wcerr.ResourceNotFound, "unknown keyset for quote")
}

func (s *Store) ListKeysets() ([]keystore.KeysetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]keystore.KeysetRecord, 0, len(s.keysets))
	for _, rec := range s.keysets {
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) UpdateKeysetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keysets[id]
	if !ok {
		return wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	rec.Active = active
	s.keysets[id] = rec
	return nil
}

func (s *Store) SetMintCondition(id string, c cashu.MintCondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keysets[id]
	if !ok {
		return wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	rec.Condition = &c
	s.keysets[id] = rec
	return nil
}

func (s *Store) MarkMinted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keysets[id]
	if !ok {
		return wcerr.New(wcerr.ResourceNotFound, "unknown keyset")
	}
	if rec.Condition == nil {
		return wcerr.New(wcerr.InvalidRequest, "keyset has no mint condition")
	}
	rec.Condition.Minted = true
	s.keysets[id] = rec
	return nil
}

func (s *Store) SaveSignature(keysetId string, B_ string, sig cashu.BlindedSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signatures[B_] = sig
	return nil
}

func (s *Store) GetSignature(B_ string) (cashu.BlindedSignature, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signatures[B_]
	return sig, ok, nil
}

func (s *Store) Close() error { return nil }
