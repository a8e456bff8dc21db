package models

import "fmt"

// Action identifies what the user wants done.
type Action string

const (
	ActionQueryTimes Action = "query_times"
	ActionBook       Action = "book"
)

// Sport identifies the court type being requested.
type Sport string

const (
	SportTennis     Sport = "tennis"
	SportPickleball Sport = "pickleball"
)

// ActionRequest is the structured request produced by the intent
// extractor and consumed by the dispatcher.
type ActionRequest struct {
	Action Action `json:"action"`
	Sport  Sport  `json:"sport"`
	// Date is an already-resolved calendar date in ISO form (2006-01-02).
	Date string `json:"date"`
	// Time is the requested start time, required when Action is "book".
	Time string `json:"time,omitempty"`
}

// Validate checks the request shape. A book request without a time is a
// user error, not a crash.
func (r ActionRequest) Validate() error {
	switch r.Action {
	case ActionQueryTimes, ActionBook:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	switch r.Sport {
	case SportTennis, SportPickleball:
	default:
		return fmt.Errorf("unknown sport %q", r.Sport)
	}
	if r.Date == "" {
		return fmt.Errorf("date is required")
	}
	if r.Action == ActionBook && r.Time == "" {
		return fmt.Errorf("a time is required to book a court")
	}
	return nil
}
