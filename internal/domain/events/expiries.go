// Package events selects the option expiries relevant to an earnings
// report: the event expiry that captures the post-report move and its
// neighbors on either side.
package events

import (
	"sort"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// marketCloseHour is the local hour at/after which an earnings report is
// treated as after-close: a same-day expiry settles before the report and
// cannot be the event expiry.
const marketCloseHour = 16

// Window holds the event expiry and its neighbors. Any field may be nil.
type Window struct {
	Event *time.Time
	Prev  *time.Time
	Next  *time.Time
}

// FindWindow picks the event expiry (first expiry on or after the earnings
// date, rolled to the next day for at/after-close reports) and its nearest
// neighbors from the listed expiries.
func FindWindow(earningsTS time.Time, expiries []time.Time) Window {
	effective := domain.DateOf(earningsTS)
	if earningsTS.Hour() >= marketCloseHour {
		effective = effective.AddDate(0, 0, 1)
	}

	sorted := make([]time.Time, len(expiries))
	for i, e := range expiries {
		sorted[i] = domain.DateOf(e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var w Window
	for i, expiry := range sorted {
		if expiry.Before(effective) {
			continue
		}
		e := expiry
		w.Event = &e
		if i > 0 {
			p := sorted[i-1]
			w.Prev = &p
		}
		if i < len(sorted)-1 {
			n := sorted[i+1]
			w.Next = &n
		}
		break
	}
	return w
}

// WindowAround rebuilds the window for an already-chosen event expiry,
// attaching the nearest listed neighbors on either side. Rescoring phases
// use this so a persisted event expiry is reused verbatim instead of being
// re-derived from the earnings timestamp.
func WindowAround(event time.Time, expiries []time.Time) Window {
	ev := domain.DateOf(event)
	w := Window{Event: &ev}
	for _, e := range expiries {
		d := domain.DateOf(e)
		switch {
		case d.Before(ev):
			if w.Prev == nil || d.After(*w.Prev) {
				p := d
				w.Prev = &p
			}
		case d.After(ev):
			if w.Next == nil || d.Before(*w.Next) {
				n := d
				w.Next = &n
			}
		}
	}
	return w
}

// Validation is the per-window tradability check result.
type Validation struct {
	HasEvent   bool
	HasPrev    bool
	HasNext    bool
	EventDTEOK bool
	NextGapOK  bool
	Valid      bool
}

// Constraints bounds the acceptable expiry geometry.
type Constraints struct {
	// MaxEventDTE caps the days from earnings to the event expiry.
	MaxEventDTE int `yaml:"max_event_dte"`
	// MinNextGap is the minimum days from the event expiry to the next.
	MinNextGap int `yaml:"min_next_gap"`
}

// DefaultConstraints matches the production limits.
func DefaultConstraints() Constraints {
	return Constraints{MaxEventDTE: 60, MinNextGap: 7}
}

// Validate checks a window against the constraints. A window is valid when
// it has an event expiry within the DTE bound; neighbors are advisory.
func Validate(w Window, earningsDate time.Time, c Constraints) Validation {
	v := Validation{
		HasEvent: w.Event != nil,
		HasPrev:  w.Prev != nil,
		HasNext:  w.Next != nil,
	}
	day := domain.DateOf(earningsDate)
	if w.Event != nil {
		dte := int(w.Event.Sub(day).Hours() / 24)
		v.EventDTEOK = dte >= 0 && dte <= c.MaxEventDTE
	}
	if w.Next != nil && w.Event != nil {
		gap := int(w.Next.Sub(*w.Event).Hours() / 24)
		v.NextGapOK = gap >= c.MinNextGap
	}
	v.Valid = v.HasEvent && v.EventDTEOK
	return v
}
