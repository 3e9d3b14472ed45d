// Package repository provides access to the historical discharge dataset
package repository

import (
	"log"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
)

// HistoryStore is a read-only, insertion-ordered set of historical discharge records
type HistoryStore struct {
	records []entities.HistoricalRecord
	dates   []time.Time
	byYear  map[int][]int // Buddhist year -> indexes into records, in input order
}

// NewHistoryStore builds a store from records, silently dropping any whose date does not exist
func NewHistoryStore(records []entities.HistoricalRecord) *HistoryStore {
	s := &HistoryStore{byYear: make(map[int][]int)}
	dropped := 0
	for _, rec := range records {
		d, ok := composeDate(rec.BuddhistYear, rec.Month, rec.Day)
		if !ok {
			dropped++
			continue
		}
		s.byYear[rec.BuddhistYear] = append(s.byYear[rec.BuddhistYear], len(s.records))
		s.records = append(s.records, rec)
		s.dates = append(s.dates, d)
	}
	if dropped > 0 {
		log.Printf("Dropped %d historical records with impossible dates", dropped)
	}
	return s
}

// Len returns the number of usable records
func (s *HistoryStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns a copy of the records in input order
func (s *HistoryStore) Records() []entities.HistoricalRecord {
	if s == nil {
		return nil
	}
	out := make([]entities.HistoricalRecord, len(s.records))
	copy(out, s.records)
	return out
}

// LookupNearest returns the record of buddhistYear whose date is closest to today's
// day and month in that year. Ties go to the record that came first in the input.
// It reports false when the year has no records.
func (s *HistoryStore) LookupNearest(buddhistYear int, today time.Time) (entities.HistoricalRecord, bool) {
	if s == nil {
		return entities.HistoricalRecord{}, false
	}
	idxs := s.byYear[buddhistYear]
	if len(idxs) == 0 {
		return entities.HistoricalRecord{}, false
	}

	_, month, day := today.Date()
	// time.Date normalises 29 February into 1 March for non-leap target years.
	target := time.Date(entities.BuddhistToGregorian(buddhistYear), month, day, 0, 0, 0, 0, time.UTC)

	best := -1
	var bestDist time.Duration
	for _, i := range idxs {
		dist := s.dates[i].Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return s.records[best], true
}
