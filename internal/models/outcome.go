package models

import "time"

// Dispatch outcome status constants.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// DispatchOutcome is the terminal result of one dispatch attempt. Exactly one
// outcome is produced per recipient per run and it is immutable once created.
type DispatchOutcome struct {
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sent reports whether the dispatch succeeded.
func (o DispatchOutcome) Sent() bool { return o.Status == OutcomeSent }

// FailureRecord pairs a recipient address with the error detail captured for
// it. The statistics error log is an ordered sequence of these.
type FailureRecord struct {
	Phone string `json:"phone"`
	Error string `json:"error"`
}

// RunStatistics aggregates counts and failures across one scheduler run. It
// is owned exclusively by that run and mutated only by folding outcomes; the
// scheduler guards mutation with its own lock.
type RunStatistics struct {
	Total  int             `json:"total"`
	Sent   int             `json:"sent"`
	Failed int             `json:"failed"`
	Errors []FailureRecord `json:"errors"`
}

// Reset prepares the statistics for a new run: total is set and every
// counter and the error log are zeroed.
func (s *RunStatistics) Reset(total int) {
	s.Total = total
	s.Sent = 0
	s.Failed = 0
	s.Errors = nil
}

// Fold applies one outcome. Counters only ever increase during a run.
func (s *RunStatistics) Fold(outcome DispatchOutcome) {
	if outcome.Sent() {
		s.Sent++
		return
	}
	s.Failed++
	s.Errors = append(s.Errors, FailureRecord{Phone: outcome.Phone, Error: outcome.Error})
}

// Clone returns a deep copy so a report snapshot cannot alias the error log.
func (s *RunStatistics) Clone() RunStatistics {
	cp := *s
	if len(s.Errors) > 0 {
		cp.Errors = append([]FailureRecord(nil), s.Errors...)
	}
	return cp
}

// Report is a write-once snapshot taken at the end of a run: a timestamp,
// the statistics as they stand, and the full ordered outcome sequence.
type Report struct {
	Timestamp time.Time         `json:"timestamp"`
	Stats     RunStatistics     `json:"stats"`
	Details   []DispatchOutcome `json:"details"`
}
