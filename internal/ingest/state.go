package ingest

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned when a run is requested while one is in
// flight.
var ErrAlreadyRunning = errors.New("ingestion run already in progress")

// Phase is the lifecycle position of an ingestion run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseStopped   Phase = "stopped"
)

// State is an immutable snapshot of an ingestion run. Transitions
// return a new value and never mutate the receiver, so they can be
// tested without any I/O.
type State struct {
	Phase      Phase  `json:"phase"`
	Page       int    `json:"page"`       // page currently being processed
	TotalPages int    `json:"totalPages"` // 0 until the first page reveals the count
	Inserted   int    `json:"inserted"`
	Errored    int    `json:"errored"`
	LastPage   int    `json:"lastPage"` // resume point after a failure
	Error      string `json:"error,omitempty"`
}

// Idle is the initial state.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Start begins a run at the given page. Only valid from a terminal or
// idle phase.
func (s State) Start(startPage int) (State, error) {
	if s.Phase == PhaseRunning {
		return s, ErrAlreadyRunning
	}
	if startPage < 1 {
		return s, fmt.Errorf("start page must be >= 1, got %d", startPage)
	}
	return State{Phase: PhaseRunning, Page: startPage}, nil
}

// WithTotalPages records the page count learned from the first fetch.
func (s State) WithTotalPages(total int) State {
	s.TotalPages = total
	return s
}

// PageDone accumulates one page's counters and advances to the next
// page.
func (s State) PageDone(inserted, errored int) (State, error) {
	if s.Phase != PhaseRunning {
		return s, fmt.Errorf("page done in phase %q", s.Phase)
	}
	s.Inserted += inserted
	s.Errored += errored
	s.LastPage = s.Page
	s.Page++
	return s, nil
}

// Complete finishes the run successfully.
func (s State) Complete() (State, error) {
	if s.Phase != PhaseRunning {
		return s, fmt.Errorf("complete in phase %q", s.Phase)
	}
	s.Phase = PhaseCompleted
	return s, nil
}

// Fail halts the run, keeping the current page as the resume point.
func (s State) Fail(err error) (State, error) {
	if s.Phase != PhaseRunning {
		return s, fmt.Errorf("fail in phase %q", s.Phase)
	}
	s.Phase = PhaseFailed
	s.LastPage = s.Page
	if err != nil {
		s.Error = err.Error()
	}
	return s, nil
}

// Stop halts the run on caller request (context cancellation). The
// current page becomes the resume point.
func (s State) Stop() (State, error) {
	if s.Phase != PhaseRunning {
		return s, fmt.Errorf("stop in phase %q", s.Phase)
	}
	s.Phase = PhaseStopped
	s.LastPage = s.Page
	return s, nil
}

// Done reports whether the run has reached a terminal phase.
func (s State) Done() bool {
	switch s.Phase {
	case PhaseCompleted, PhaseFailed, PhaseStopped:
		return true
	default:
		return false
	}
}

// HasMore reports whether pages remain beyond the current one.
func (s State) HasMore() bool {
	return s.TotalPages > 0 && s.Page <= s.TotalPages
}
