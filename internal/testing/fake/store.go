package fake

import (
	"sort"
	"strings"

	"go.dedis.ch/sealbox/core/store"
)

// Snapshot is an in-memory ledger snapshot. A bad snapshot fails every read
// and write.
//
// - implements store.Snapshot
type Snapshot struct {
	store.Snapshot

	entries map[string][]byte
	writes  int
	err     error
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string][]byte)}
}

// NewBadSnapshot returns an empty snapshot that always returns an error.
func NewBadSnapshot() *Snapshot {
	snap := NewSnapshot()
	snap.err = fakeErr

	return snap
}

// Get implements store.Snapshot.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	return s.entries[string(key)], nil
}

// Set implements store.Snapshot.
func (s *Snapshot) Set(key, value []byte) error {
	if s.err != nil {
		return s.err
	}

	s.entries[string(key)] = value
	s.writes++

	return nil
}

// Delete implements store.Snapshot.
func (s *Snapshot) Delete(key []byte) error {
	if s.err != nil {
		return s.err
	}

	delete(s.entries, string(key))
	s.writes++

	return nil
}

// Writes returns the number of changes applied to the snapshot.
func (s *Snapshot) Writes() int {
	return s.writes
}

// Keys returns the sorted keys that start with the prefix.
func (s *Snapshot) Keys(prefix string) []string {
	var keys []string

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}
