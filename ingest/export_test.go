package ingest

import "time"

// SetTicker replaces the ticker factory used when the scheduler is armed
func (s *Scheduler) SetTicker(newTicker func(time.Duration) (<-chan time.Time, func())) {
	s.newTicker = newTicker
}

var (
	InsertedTotal       = insertedTotal
	SourceFailuresTotal = sourceFailuresTotal
)
