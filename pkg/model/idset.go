package model

import (
	"encoding/json"
)

// IDSet is an insertion-ordered set of identifiers.
// Adding an identifier that is already present is a no-op, so repeated
// ingestion of the same record never grows the set.
type IDSet struct {
	ids  []string
	seen map[string]struct{}
}

// NewIDSet creates a set holding ids in order, dropping duplicates.
func NewIDSet(ids ...string) IDSet {
	var s IDSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was newly added.
func (s *IDSet) Add(id string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of identifiers.
func (s IDSet) Len() int {
	return len(s.ids)
}

// Values returns a copy of the identifiers in insertion order.
func (s IDSet) Values() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// MarshalJSON encodes the set as a JSON array in insertion order.
func (s IDSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON decodes a JSON array, dropping duplicates.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
