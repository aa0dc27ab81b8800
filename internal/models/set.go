package models

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var setJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// StringSet is a set of strings that survives a JSON round trip.
// It encodes as a sorted array of unique values; decoding collapses duplicates.
type StringSet map[string]struct{}

// NewStringSet creates a set holding the given values
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v and reports whether it was absent
func (s StringSet) Add(v string) bool {
	if s.Has(v) {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Remove deletes v and reports whether it was present
func (s StringSet) Remove(v string) bool {
	if !s.Has(v) {
		return false
	}
	delete(s, v)
	return true
}

// Toggle flips membership of v and reports whether v is now present
func (s StringSet) Toggle(v string) bool {
	if s.Remove(v) {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s StringSet) Len() int {
	return len(s)
}

// Values returns the members in sorted order
func (s StringSet) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (s StringSet) Clone() StringSet {
	return NewStringSet(s.Values()...)
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return setJSON.Marshal(s.Values())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := setJSON.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
