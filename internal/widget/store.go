package widget

import (
	"errors"
	"sync"
	"time"

	"weather-widget/internal/weather"
)

// ErrStale is returned when a lookup finishes after a newer one was started.
var ErrStale = errors.New("result superseded by a newer request")

// Result is the forecast currently on display.
type Result struct {
	Place     weather.PlaceIdentity   `json:"place"`
	Days      []weather.NormalizedDay `json:"days"`
	FetchedAt time.Time               `json:"fetched_at"`
}

// Ticket stamps one lookup chain.
type Ticket uint64

// Store holds a single Result. Writes through Commit only succeed for the
// most recently issued ticket.
type Store struct {
	mu      sync.RWMutex
	issued  uint64
	current *Result
}

func NewStore() *Store {
	return &Store{}
}

// Begin issues the next ticket. Any ticket issued earlier becomes stale.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket(s.issued)
}

func (s *Store) IsLatest(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(t) == s.issued
}

// Commit stores r if t is still the latest ticket, otherwise returns ErrStale
// and leaves the held result untouched.
func (s *Store) Commit(t Ticket, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(t) != s.issued {
		return ErrStale
	}
	s.current = &r
	return nil
}

func (s *Store) Get() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}
