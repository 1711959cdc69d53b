package domain

import "time"

// Job is one unit of asynchronous ingestion work for a document.
// A document has at most one active (pending or processing) job at a time.
type Job struct {
	// ID is the unique identifier for the job.
	ID string

	// UserID is the owning tenant, denormalised so job queries never join.
	UserID string

	// DocumentID is the document this job processes.
	DocumentID string

	// Status is the current state in the job state machine.
	Status Status

	// ErrorMessage holds a human-readable failure description when
	// Status is failed.
	ErrorMessage string

	// Attempts counts how many times the job has been dispatched.
	Attempts int

	// CreatedAt is when the job was submitted.
	CreatedAt time.Time

	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time
}

// Active reports whether the job occupies the document's single
// active-job slot.
func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusProcessing
}

// Terminal reports whether the job can make no further progress.
// Failed jobs are terminal until an explicit retry flips them back
// to pending; completed is terminal forever.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// CanTransition reports whether the state machine permits moving from
// the job's current status to the target status:
//
//	pending    -> processing
//	processing -> completed | failed
//	failed     -> pending      (explicit, bounded retry)
//
// completed is terminal.
func (j *Job) CanTransition(to Status) bool {
	switch j.Status {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	case StatusCompleted:
		return false
	}
	return false
}
