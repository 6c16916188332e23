package worker

import (
	"sync"

	"sjsage522/clubticketworker/internal/row"
)

// ResultSet accumulates rows keyed by canonical event URL. The first row
// seen for a URL wins; later ones are dropped and counted.
type ResultSet struct {
	mu         sync.Mutex
	index      map[string]struct{}
	rows       []row.Row
	duplicates int
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{
		index: make(map[string]struct{}),
	}
}

// Add inserts r unless a row with the same URL is already present
func (s *ResultSet) Add(r row.Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(r)
}

// Merge inserts a whole venue batch under one lock and reports how many
// rows were added, how many were duplicates and the new total.
func (s *ResultSet) Merge(rows []row.Row) (added, duplicates, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if s.add(r) {
			added++
		} else {
			duplicates++
		}
	}
	return added, duplicates, len(s.rows)
}

func (s *ResultSet) add(r row.Row) bool {
	if _, ok := s.index[r.URL]; ok {
		s.duplicates++
		return false
	}
	s.index[r.URL] = struct{}{}
	s.rows = append(s.rows, r)
	return true
}

// Rows returns a copy of the rows in insertion order
func (s *ResultSet) Rows() []row.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]row.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of distinct rows
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Duplicates returns how many rows were dropped as duplicates
func (s *ResultSet) Duplicates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates
}
