package store

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
)

// Status is the lifecycle state of a cache entry.
//
// idle -> loading -> success | error. A success entry that is re-fetched
// keeps its data and status and only flips Fetching; loading is reserved
// for entries that have no data to show.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is a snapshot of one cache slot. Data is set iff Status is
// success; Err is set iff Status is error. Revision increases with every
// change of the slot and orders snapshots delivered to listeners.
type Entry struct {
	Status        Status
	Data          any
	Err           error
	Tags          []api.Tag
	LastFetchedAt time.Time
	Stale         bool
	Fetching      bool
	Revision      uint64
}

// Fresh reports whether the entry holds data that has not been invalidated.
func (e Entry) Fresh() bool {
	return e.Status == StatusSuccess && !e.Stale
}

// HasTag reports whether tag is in the entry's tag set.
func (e Entry) HasTag(tag api.Tag) bool {
	return slices.Contains(e.Tags, tag)
}

func (e Entry) clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	return e
}

// normalize enforces the data/err invariant.
func (e Entry) normalize() Entry {
	if e.Status != StatusSuccess {
		e.Data = nil
	}
	if e.Status != StatusError {
		e.Err = nil
	}
	if e.Status == "" {
		e.Status = StatusIdle
	}
	return e
}

func intersects(tags []api.Tag, with []api.Tag) bool {
	for _, t := range with {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}
