package models

import "time"

// SessionTiming records when a document was opened and closed for viewing.
type SessionTiming struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Active reports whether the session has started and not yet ended.
func (s SessionTiming) Active() bool {
	return s.Start != nil && s.End == nil
}

// Delta returns the whole seconds between Start and End, or 0 when either is unset.
func (s SessionTiming) Delta() int {
	if s.Start == nil || s.End == nil {
		return 0
	}
	d := s.End.Sub(*s.Start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
