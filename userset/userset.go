// Package userset collects fetched accounts into a unique,
// first-seen-ordered set keyed by DID.
package userset

import (
	"bsky.watch/utils/didset"

	"bsky.watch/list-actions/fetch"
)

type Set struct {
	order []fetch.Entry
	seen  map[string]bool
	skip  didset.StringSet
}

// New returns an empty set. Entries whose DID is in skip are ignored
// entirely; skip may be nil.
func New(skip didset.StringSet) *Set {
	return &Set{seen: map[string]bool{}, skip: skip}
}

// Add inserts the entry unless its DID was already seen or is skipped.
// Reports whether the entry was kept.
func (s *Set) Add(entry fetch.Entry) bool {
	if s.seen[entry.DID] || s.skip[entry.DID] {
		return false
	}
	s.seen[entry.DID] = true
	s.order = append(s.order, entry)
	return true
}

// Users returns the kept entries in first-seen order.
func (s *Set) Users() []fetch.Entry {
	return s.order
}

func (s *Set) Len() int {
	return len(s.order)
}

// Collect drains the iterator into a new set.
func Collect(it *fetch.Iterator, skip didset.StringSet) (*Set, error) {
	s := New(skip)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return s, nil
		}
		s.Add(entry)
	}
}
