package history

import (
	"sync"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/services/features"
	"QuantCore/pkg/logger"
)

// Store holds bounded per-symbol observation buffers. It is the single owner
// of every PriceSeries; callers get copies, never views into the ring.
// Writes for one symbol must come from one goroutine (the collector); reads
// may come from anywhere.
type Store struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*ring
	log      *logger.Logger
}

// NewStore creates a store whose per-symbol series never exceed capacity.
func NewStore(capacity int, log *logger.Logger) *Store {
	if capacity < 2 {
		capacity = 2
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*ring),
		log:      log,
	}
}

// Append adds a point to the symbol's series, evicting the oldest past
// capacity. Points with a non-positive price are dropped, not fatal.
func (s *Store) Append(p models.PricePoint) bool {
	if p.Price <= 0 {
		s.log.Warn("dropping point with non-positive price",
			logger.String("symbol", p.Symbol),
			logger.Float64("price", p.Price))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.series[p.Symbol]
	if !ok {
		r = newRing(s.capacity)
		s.series[p.Symbol] = r
	}
	r.push(p)
	return true
}

// Series returns an ordered (oldest first) copy of the symbol's points.
func (s *Store) Series(symbol string) []models.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[symbol]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// Prices returns the ordered price column for a symbol.
func (s *Store) Prices(symbol string) []float64 {
	pts := s.Series(symbol)
	if pts == nil {
		return nil
	}
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Price
	}
	return out
}

// Returns computes log returns over the symbol's price series.
func (s *Store) Returns(symbol string) []float64 {
	return features.LogReturns(s.Prices(symbol))
}

// Latest returns the most recent point for a symbol.
func (s *Store) Latest(symbol string) (models.PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[symbol]
	if !ok || r.count == 0 {
		return models.PricePoint{}, false
	}
	return r.latest(), true
}

// Len returns the number of retained points for a symbol.
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[symbol]
	if !ok {
		return 0
	}
	return r.count
}

// Ready reports whether the symbol has at least minLen observations.
func (s *Store) Ready(symbol string, minLen int) bool {
	return s.Len(symbol) >= minLen
}

// Symbols returns every symbol with at least one retained point.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	return out
}

// Capacity returns the configured per-symbol bound.
func (s *Store) Capacity() int { return s.capacity }

// ring is a fixed-capacity circular buffer of observations.
type ring struct {
	data  []models.PricePoint
	size  int
	count int
	head  int // index of next write once full
}

func newRing(size int) *ring {
	return &ring{data: make([]models.PricePoint, size), size: size}
}

func (r *ring) push(p models.PricePoint) {
	if r.count < r.size {
		r.data[r.count] = p
		r.count++
		return
	}
	r.data[r.head] = p
	r.head = (r.head + 1) % r.size
}

func (r *ring) latest() models.PricePoint {
	if r.count < r.size {
		return r.data[r.count-1]
	}
	return r.data[(r.head-1+r.size)%r.size]
}

func (r *ring) snapshot() []models.PricePoint {
	out := make([]models.PricePoint, r.count)
	if r.count < r.size {
		copy(out, r.data[:r.count])
		return out
	}
	n := copy(out, r.data[r.head:])
	copy(out[n:], r.data[:r.head])
	return out
}
