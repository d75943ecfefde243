package memory

import (
	"sync"
	"time"

	"github.com/ontiyonke/quantdsl/internal/engine"
)

// ResultStore is a map-backed engine.ResultStore. Writes happen on the
// evaluator goroutine, reads on the waiting caller, so access is serialized
// by an RWMutex.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]engine.Result
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]engine.Result)}
}

// Put stores a completed valuation result.
func (s *ResultStore) Put(result engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
}

// Contains reports whether a result with the given id is present.
func (s *ResultStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.results[id]
	return ok
}

// Get returns the result with the given id, if present.
func (s *ResultStore) Get(id string) (engine.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	return result, ok
}

// PriceStore is a map-backed engine.PriceStore keyed by
// engine.MakePriceID.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]engine.SimulatedPrice
}

// NewPriceStore creates an empty price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]engine.SimulatedPrice)}
}

// Put stores a simulated price vector for a simulation.
func (s *PriceStore) Put(simulationID string, price engine.SimulatedPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[engine.MakePriceID(simulationID, price.Commodity, price.Date, price.Date)] = price
}

// Get returns the simulated price for (simulation, commodity, interval).
func (s *PriceStore) Get(simulationID, commodity string, start, end time.Time) (engine.SimulatedPrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[engine.MakePriceID(simulationID, commodity, start, end)]
	return price, ok
}
