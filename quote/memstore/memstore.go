// Package memstore is an in-process quote.Store.
package memstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/quote"
)

type Store struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]quote.Quote
}

func New() *Store {
	return &Store{quotes: make(map[uuid.UUID]quote.Quote)}
}

func (s *Store) Save(q quote.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.quotes[q.Id]; exists {
		return wcerr.New(wcerr.Conflict, "quote already exists")
	}
	s.quotes[q.Id] = q
	return nil
}

func (s *Store) Get(id uuid.UUID) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return quote.Quote{}, wcerr.UnknownQuote
	}
	return q, nil
}

func (s *Store) List() ([]quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]quote.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) Update(q quote.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[q.Id]; !ok {
		return wcerr.UnknownQuote
	}
	s.quotes[q.Id] = q
	return nil
}

func (s *Store) Close() error { return nil }
