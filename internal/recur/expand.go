// Package recur expands recurring calendar events (weekly activities,
// termly school events) into concrete per-instance events within a time
// range, so the calendar engine and conflict detector only ever see plain
// timed events.
package recur

import (
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"coparentcal/internal/config"
	"coparentcal/internal/model"
)

// DefaultMaxPerEvent caps expansion per recurring event. A one-year daily
// rule stays under it; anything denser is almost certainly a bad rule.
const DefaultMaxPerEvent = 400

// Expand returns the concrete events intersecting [rangeStart, rangeEnd].
// Non-recurring events pass through unchanged when they intersect the
// range; events with an RRULE are expanded with their DTSTART anchored at
// the event start and EXDATEs removed. maxPerEvent <= 0 selects
// DefaultMaxPerEvent.
//
// A malformed RRULE drops only that event (logged), never the whole set:
// one bad rule must not blank a family's calendar.
func Expand(events []model.Event, rangeStart, rangeEnd time.Time, maxPerEvent int) []model.Event {
	if maxPerEvent <= 0 {
		maxPerEvent = DefaultMaxPerEvent
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.RRule == "" {
			if rangesOverlap(ev.Start, ev.End, rangeStart, rangeEnd) {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, expandRecurring(ev, rangeStart, rangeEnd, maxPerEvent)...)
	}
	return out
}

func expandRecurring(ev model.Event, rangeStart, rangeEnd time.Time, maxPerEvent int) []model.Event {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		slog.Error("dropping event with unparseable RRULE",
			config.LogKeyComponent, config.CompRecur,
			config.LogKeyEventID, ev.ID.String(),
			config.LogKeyError, err,
		)
		return nil
	}
	r.DTStart(ev.Start.UTC())

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.UTC())
	}

	occTimes := set.Between(rangeStart.UTC(), rangeEnd.UTC(), true)
	if len(occTimes) > maxPerEvent {
		occTimes = occTimes[:maxPerEvent]
		slog.Warn(config.MsgExpandTrunc,
			config.LogKeyComponent, config.CompRecur,
			config.LogKeyEventID, ev.ID.String(),
			config.LogKeyCap, maxPerEvent,
		)
	}

	duration := ev.End.Sub(ev.Start)
	if duration < 0 {
		duration = 0
	}

	out := make([]model.Event, 0, len(occTimes))
	for _, start := range occTimes {
		inst := ev
		inst.RRule = ""
		inst.ExDates = nil

		if ev.AllDay {
			// All-day instances align to the UTC day, preserving the
			// original day span.
			days := int(dayStart(ev.End).Sub(dayStart(ev.Start)) / (24 * time.Hour))
			if days < 0 {
				days = 0
			}
			inst.Start = dayStart(start)
			inst.End = inst.Start.AddDate(0, 0, days)
		} else {
			inst.Start = start
			inst.End = start.Add(duration)
		}
		out = append(out, inst)
	}
	return out
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(aStart) {
		aEnd = aStart
	}
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
