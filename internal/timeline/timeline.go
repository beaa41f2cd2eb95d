// Package timeline resolves "current" values from append-only logs.
//
// A log entry belongs to a stamp, carries the time it took effect and an
// insertion sequence. The latest entry for a stamp is the one with the
// greatest time; exact time ties go to the greater sequence, so the result
// never depends on the order entries are handed in.
package timeline

import (
	"sort"
	"time"
)

// Entry is a single record of an append-only log
type Entry interface {
	EntryStampID() string
	EntryTime() time.Time
	EntrySequence() int64
}

// Newer reports whether a supersedes b
func Newer[E Entry](a, b E) bool {
	at, bt := a.EntryTime(), b.EntryTime()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.EntrySequence() > b.EntrySequence()
}

// Latest returns the most recent entry for stampID.
// ok is false when the stamp has no entries, which callers treat as
// "no owner yet" or "no price yet" rather than as an error.
func Latest[E Entry](entries []E, stampID string) (latest E, ok bool) {
	for _, e := range entries {
		if e.EntryStampID() != stampID {
			continue
		}
		if !ok || Newer(e, latest) {
			latest = e
			ok = true
		}
	}
	return latest, ok
}

// LatestByStamp resolves the latest entry of every stamp present in entries
func LatestByStamp[E Entry](entries []E) map[string]E {
	result := make(map[string]E)
	for _, e := range entries {
		current, exists := result[e.EntryStampID()]
		if !exists || Newer(e, current) {
			result[e.EntryStampID()] = e
		}
	}
	return result
}

// SortNewestFirst orders entries from newest to oldest in place
func SortNewestFirst[E Entry](entries []E) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Newer(entries[i], entries[j])
	})
}
