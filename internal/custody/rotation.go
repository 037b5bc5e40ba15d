// Package custody resolves a recurring custody rotation (an ordered,
// cyclic list of parent/day-count blocks anchored at a reference date)
// into the parent holding custody at any instant and the handover
// (transition) timestamps within a range.
//
// The rotation is declarative: nothing per-day is ever stored, every
// query recomputes from the block list and anchor via modular arithmetic,
// so there is no cache to invalidate when the schedule definition changes.
package custody

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule is returned by NewRotation when the schedule violates
// its construction invariants. Callers should treat it as a caller contract
// violation, not a recoverable condition.
var ErrInvalidSchedule = errors.New("invalid custody schedule")

const (
	hoursPerDay = 24
	maxOwner    = 1 // two parents, indexes 0 and 1
)

// Block is a contiguous run of days assigned to one parent within the
// repeating rotation pattern.
type Block struct {
	Owner int    `json:"owner" yaml:"owner"` // parent index, 0 or 1
	Days  int    `json:"days" yaml:"days"`   // >= 1
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Schedule is the full rotation definition. The cycle length is the sum of
// all block day counts; the pattern repeats indefinitely from the anchor
// date, in both directions.
type Schedule struct {
	Blocks           []Block `json:"blocks" yaml:"blocks"`
	TransitionHour   int     `json:"transition_hour" yaml:"transition_hour"` // 0..23, hour of handover (UTC)
	ExchangeLocation string  `json:"exchange_location,omitempty" yaml:"exchange_location,omitempty"`
}

// Status reports which parent holds custody at a sampled instant.
type Status struct {
	Owner      int    `json:"owner"`
	BlockLabel string `json:"block_label"`
}

// Transition is a derived handover event. It is never persisted; it is
// recomputed on demand so it cannot drift from the rotation definition.
type Transition struct {
	At       time.Time `json:"at"`
	From     int       `json:"from"`
	To       int       `json:"to"`
	Location string    `json:"location,omitempty"`
}

// Rotation is an immutable resolver bound to one schedule and anchor date.
// It is safe for concurrent use; all methods are pure functions of their
// arguments and the bound configuration.
type Rotation struct {
	schedule  Schedule
	anchor    time.Time // UTC midnight of the anchor date
	cycleDays int
	starts    []int // day offset within the cycle at which each block starts
}

// NewRotation validates the schedule and binds it to an anchor date.
// Validation is deliberately loud and up front: a silently wrong rotation
// produces per-day rendering bugs that are much harder to diagnose than an
// immediate construction failure.
func NewRotation(schedule Schedule, anchor time.Time) (*Rotation, error) {
	if len(schedule.Blocks) == 0 {
		return nil, fmt.Errorf("%w: schedule has no blocks", ErrInvalidSchedule)
	}
	if schedule.TransitionHour < 0 || schedule.TransitionHour > 23 {
		return nil, fmt.Errorf("%w: transition hour %d out of range 0..23", ErrInvalidSchedule, schedule.TransitionHour)
	}

	starts := make([]int, len(schedule.Blocks))
	total := 0
	for i, b := range schedule.Blocks {
		if b.Days < 1 {
			return nil, fmt.Errorf("%w: block %d has non-positive day count %d", ErrInvalidSchedule, i, b.Days)
		}
		if b.Owner < 0 || b.Owner > maxOwner {
			return nil, fmt.Errorf("%w: block %d references parent index %d", ErrInvalidSchedule, i, b.Owner)
		}
		starts[i] = total
		total += b.Days
	}

	return &Rotation{
		schedule:  schedule,
		anchor:    midnightUTC(anchor),
		cycleDays: total,
		starts:    starts,
	}, nil
}

// CycleDays returns the rotation period in days.
func (r *Rotation) CycleDays() int { return r.cycleDays }

// Status resolves which parent holds custody at t.
//
// Resolution is day-granular: t is classified by the UTC calendar day it
// falls on, and a handover day belongs to the incoming parent (inclusive at
// block start). Callers that care about the pre-handover parent on a
// transition day should sample before that day; the calendar engine samples
// at noon and renders transition days as split.
func (r *Rotation) Status(t time.Time) Status {
	b := r.schedule.Blocks[r.blockIndexAt(r.cycleDay(t))]
	return Status{Owner: b.Owner, BlockLabel: b.Label}
}

// TransitionsInRange returns every handover whose timestamp lies in
// [start, end), in ascending time order. A range entirely inside one block
// yields none; single-block schedules never produce transitions.
func (r *Rotation) TransitionsInRange(start, end time.Time) []Transition {
	if len(r.schedule.Blocks) < 2 || !end.After(start) {
		return nil
	}

	var out []Transition
	r.scan(start, func(tr Transition) bool {
		if !tr.At.Before(end) {
			return false
		}
		out = append(out, tr)
		return true
	})
	return out
}

// UpcomingTransitions returns the next limit handovers at or after now.
// The scan walks forward cycle-by-cycle from now, so cost is bounded by
// O(limit + cycle length) regardless of how far now is from the anchor.
func (r *Rotation) UpcomingTransitions(now time.Time, limit int) []Transition {
	if len(r.schedule.Blocks) < 2 || limit <= 0 {
		return nil
	}

	out := make([]Transition, 0, limit)
	r.scan(now, func(tr Transition) bool {
		out = append(out, tr)
		return len(out) < limit
	})
	return out
}

// scan emits transitions with At >= from in ascending order, invoking emit
// until it returns false. The walk starts at the cycle containing from, so
// callers never pay for elapsed time since the anchor.
func (r *Rotation) scan(from time.Time, emit func(Transition) bool) {
	n := len(r.schedule.Blocks)

	// Day offset (relative to anchor) of the start of the cycle containing from.
	fromDay := r.dayOffset(from)
	cycleBase := fromDay - floorMod(fromDay, r.cycleDays)

	for base := cycleBase; ; base += r.cycleDays {
		for i := 0; i < n; i++ {
			// Every block start is a boundary; block 0 starts where the
			// previous cycle's last block ends.
			at := r.anchor.AddDate(0, 0, base+r.starts[i]).
				Add(time.Duration(r.schedule.TransitionHour) * time.Hour)
			if at.Before(from) {
				continue
			}

			prev := r.schedule.Blocks[(i+n-1)%n]
			cur := r.schedule.Blocks[i]
			tr := Transition{
				At:       at,
				From:     prev.Owner,
				To:       cur.Owner,
				Location: r.schedule.ExchangeLocation,
			}
			if !emit(tr) {
				return
			}
		}
	}
}

// cycleDay maps t to its day position within the cycle, in 0..cycleDays-1.
// floorMod keeps the result well-defined for instants before the anchor.
func (r *Rotation) cycleDay(t time.Time) int {
	return floorMod(r.dayOffset(t), r.cycleDays)
}

// dayOffset is the signed number of calendar days (UTC) from the anchor
// date to the date of t.
func (r *Rotation) dayOffset(t time.Time) int {
	diff := midnightUTC(t).Sub(r.anchor)
	return int(diff / (hoursPerDay * time.Hour))
}

func (r *Rotation) blockIndexAt(cycleDay int) int {
	for i := len(r.starts) - 1; i >= 0; i-- {
		if cycleDay >= r.starts[i] {
			return i
		}
	}
	return 0
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// floorMod is the mathematical modulo: the result always lies in [0, m).
// Go's % truncates toward zero, which would misclassify pre-anchor days.
func floorMod(a, m int) int {
	return ((a % m) + m) % m
}
