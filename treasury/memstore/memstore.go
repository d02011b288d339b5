// Package memstore is an in-process treasury.Store, backing tests and
// any deployment that doesn't need durability across restarts.
package memstore

import (
	"sync"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
	"github.com/wildcat-ecash/backoffice/treasury"
)

type Store struct {
	mu       sync.Mutex
	counters map[string]uint32
	requests map[string]treasury.Request
	redeemed uint64
}

func New() *Store {
	return &Store{
		counters: make(map[string]uint32),
		requests: make(map[string]treasury.Request),
	}
}

func (s *Store) Counter(keysetId string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[keysetId], nil
}

func (s *Store) AdvanceCounter(keysetId string, by uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[keysetId] += by
	return nil
}

func (s *Store) SaveRequest(req treasury.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.Id]; exists {
		return wcerr.New(wcerr.Conflict, "request already exists")
	}
	s.requests[req.Id] = req
	return nil
}

func (s *Store) GetRequest(id string) (treasury.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return treasury.Request{}, wcerr.RequestIDNotFound
	}
	return req, nil
}

func (s *Store) UpdateRequest(req treasury.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.Id]; !ok {
		return wcerr.RequestIDNotFound
	}
	s.requests[req.Id] = req
	return nil
}

func (s *Store) ListRequests() ([]treasury.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]treasury.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	return out, nil
}

func (s *Store) AddRedeemed(amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redeemed += amount
	return nil
}

func (s *Store) RedeemedTotal() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redeemed, nil
}

func (s *Store) Close() error { return nil }
