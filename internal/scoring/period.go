package scoring

import "time"

// Period is an optional reporting window. A nil *Period means no bound.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, inclusive on both
// ends. A nil period contains everything.
func (p *Period) Contains(t time.Time) bool {
	if p == nil {
		return true
	}
	return !t.Before(p.Start) && !t.After(p.End)
}
