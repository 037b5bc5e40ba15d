// Package conflict flags pairs of calendar events that overlap, or that
// land closer together than a configurable buffer window (back-to-back
// appointments with no travel time between them).
package conflict

import (
	"sort"
	"time"

	"coparentcal/internal/model"
)

// Kind distinguishes a direct interval intersection from a near miss that
// only falls inside the buffer window.
type Kind string

const (
	KindOverlap      Kind = "overlap"
	KindBufferWindow Kind = "buffer_window"
)

// Conflict pairs two events with how close they run. A and B are ordered by
// normalized start time (ties broken by id) so output does not depend on
// input order. MinutesApart is the gap between the intervals, zero when
// they intersect.
type Conflict struct {
	A            model.Event `json:"a"`
	B            model.Event `json:"b"`
	MinutesApart int         `json:"minutes_apart"`
	Kind         Kind        `json:"kind"`
}

// interval is a half-open [start, end) span used for all comparisons.
type interval struct {
	start, end time.Time
	ev         model.Event
}

// Detect runs the pairwise scan over events with the given buffer window,
// returning conflicts sorted ascending by minutes-apart. Negative windows
// are clamped to zero.
//
// The scan is intentionally O(n²): the input is one month of one family's
// events. An unbounded horizon would call for an interval-tree sweep
// instead; this is a documented future improvement, not a requirement.
func Detect(events []model.Event, windowMinutes int) []Conflict {
	if windowMinutes < 0 {
		windowMinutes = 0
	}
	window := time.Duration(windowMinutes) * time.Minute

	ivs := make([]interval, len(events))
	for i, ev := range events {
		ivs[i] = normalize(ev)
	}

	var out []Conflict
	for i := 0; i < len(ivs); i++ {
		for j := i + 1; j < len(ivs); j++ {
			a, b := ivs[i], ivs[j]
			if !canonicalBefore(a, b) {
				a, b = b, a
			}

			// Buffered overlap: equivalent to intersecting after growing
			// each interval by the window (Minkowski sum).
			if !a.start.Before(b.end.Add(window)) || !b.start.Before(a.end.Add(window)) {
				continue
			}

			c := Conflict{A: a.ev, B: b.ev, Kind: KindBufferWindow}
			if a.start.Before(b.end) && b.start.Before(a.end) {
				c.Kind = KindOverlap
			} else {
				c.MinutesApart = gapMinutes(a, b)
			}
			out = append(out, c)
		}
	}

	// The full (A, B) identity participates in the tiebreak: one event
	// overlapping several partners yields conflicts that tie on minutes
	// apart and A, and only the B fields distinguish them.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MinutesApart != out[j].MinutesApart {
			return out[i].MinutesApart < out[j].MinutesApart
		}
		if !out[i].A.Start.Equal(out[j].A.Start) {
			return out[i].A.Start.Before(out[j].A.Start)
		}
		if out[i].A.ID != out[j].A.ID {
			return out[i].A.ID.String() < out[j].A.ID.String()
		}
		if !out[i].B.Start.Equal(out[j].B.Start) {
			return out[i].B.Start.Before(out[j].B.Start)
		}
		return out[i].B.ID.String() < out[j].B.ID.String()
	})
	return out
}

// normalize maps an event to its comparison interval: all-day events cover
// the full UTC day(s) they span, timed events use their literal instants
// with end clamped to be >= start. Clamping is enforced here rather than
// assumed of the caller.
func normalize(ev model.Event) interval {
	if ev.AllDay {
		start := dayStartUTC(ev.Start)
		last := ev.End
		if last.Before(ev.Start) {
			last = ev.Start
		}
		return interval{start: start, end: dayStartUTC(last).AddDate(0, 0, 1), ev: ev}
	}

	end := ev.End
	if end.Before(ev.Start) {
		end = ev.Start
	}
	return interval{start: ev.Start, end: end, ev: ev}
}

func canonicalBefore(a, b interval) bool {
	if !a.start.Equal(b.start) {
		return a.start.Before(b.start)
	}
	return a.ev.ID.String() < b.ev.ID.String()
}

// gapMinutes is the distance between two disjoint intervals where a starts
// no later than b.
func gapMinutes(a, b interval) int {
	gap := b.start.Sub(a.end)
	if gap < 0 {
		gap = 0
	}
	return int(gap / time.Minute)
}

func dayStartUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
