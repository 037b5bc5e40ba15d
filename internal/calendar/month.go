// Package calendar builds the month view-model for a family's custody
// calendar: a day-by-day grid with custody coloring, merged display
// events, pending-request markers, and the sidebar's upcoming handovers.
//
// The engine is a pure function of its inputs per call. It holds only
// immutable configuration (the family record and a bound rotation), so
// concurrent renders for different requests are safe, and "now" is always
// an explicit parameter to keep every call deterministic.
package calendar

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coparentcal/internal/config"
	"coparentcal/internal/conflict"
	"coparentcal/internal/custody"
	"coparentcal/internal/model"
)

// Color classifies a day cell's custody shading.
type Color string

const (
	ColorPrimary   Color = "primary"
	ColorSecondary Color = "secondary"
	ColorSplit     Color = "split"
)

// Labels supplies the localized strings the grid and sidebar need. The
// i18n package provides the production implementation; the zero engine
// falls back to English.
type Labels interface {
	Today() string
	Tomorrow() string
	Weekday(time.Weekday) string
	Exchange(clock string) string
}

// DayEvent is one merged display entry inside a day cell: either a
// synthesized handover pseudo-event or a real calendar event annotated
// with its category style.
type DayEvent struct {
	Title      string         `json:"title"`
	Category   model.Category `json:"category,omitempty"`
	Icon       string         `json:"icon"`
	Color      string         `json:"color"`
	IsExchange bool           `json:"is_exchange,omitempty"`
	Location   string         `json:"location,omitempty"`
}

// DayState is one rendered day cell. Padding cells (grid alignment for the
// partial first week) carry no custody or event data and are flagged
// non-interactive.
type DayState struct {
	Date              string     `json:"date,omitempty"` // yyyy-mm-dd, empty for padding
	Day               int        `json:"day,omitempty"`  // 1..31, zero for padding
	Padding           bool       `json:"padding,omitempty"`
	Color             Color      `json:"color,omitempty"`
	HoldingParent     int        `json:"holding_parent"` // parent index sampled at noon
	Events            []DayEvent `json:"events"`
	HasPendingRequest bool       `json:"has_pending_request"`
	PendingRequestID  *uuid.UUID `json:"pending_request_id,omitempty"`
}

// UpcomingTransition is one sidebar row: a handover within the lookahead
// window, labeled relative to now.
type UpcomingTransition struct {
	At        time.Time    `json:"at"`
	From      model.Parent `json:"from"`
	To        model.Parent `json:"to"`
	DayLabel  string       `json:"day_label"`  // Today / Tomorrow / weekday name
	TimeLabel string       `json:"time_label"` // HH:MM
	Location  string       `json:"location,omitempty"`
}

// MonthData is the immutable view-model consumed by rendering. It is plain
// data with no behavior, so it can cross serialization boundaries without
// adaptation.
type MonthData struct {
	Year                int                  `json:"year"`
	Month               int                  `json:"month"`
	Days                []DayState           `json:"days"`
	UpcomingTransitions []UpcomingTransition `json:"upcoming_transitions"`
	CurrentParent       model.Parent         `json:"current_parent"` // holding custody at now
	OtherParent         model.Parent         `json:"other_parent"`
}

// categoryStyles maps event categories to their display icon and color.
var categoryStyles = map[model.Category]struct{ Icon, Color string }{
	model.CategoryHoliday:  {Icon: "sun", Color: "amber"},
	model.CategoryActivity: {Icon: "ball", Color: "green"},
	model.CategoryMedical:  {Icon: "cross", Color: "red"},
	model.CategorySchool:   {Icon: "book", Color: "blue"},
	model.CategoryOther:    {Icon: "dot", Color: "gray"},
}

var exchangeStyle = struct{ Icon, Color string }{Icon: "swap", Color: "purple"}

// Engine renders month grids for one family.
type Engine struct {
	family   model.Family
	rotation *custody.Rotation
	labels   Labels
}

// New binds an engine to a family, validating its schedule up front.
// Invalid schedules fail loudly here (custody.ErrInvalidSchedule) instead
// of producing silently wrong per-day results later.
func New(family model.Family, labels Labels) (*Engine, error) {
	rotation, err := custody.NewRotation(family.Schedule, family.AnchorDate)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = englishLabels{}
	}
	return &Engine{family: family, rotation: rotation, labels: labels}, nil
}

// Rotation exposes the bound resolver for collaborators (the feed builder
// projects transitions from it directly).
func (e *Engine) Rotation() *custody.Rotation { return e.rotation }

// Family returns the bound family record.
func (e *Engine) Family() model.Family { return e.family }

// Labels returns the bound label localizer.
func (e *Engine) Labels() Labels { return e.labels }

// DetectConflicts delegates to the conflict detector, keeping one cohesive
// public surface for the calendar page.
func (e *Engine) DetectConflicts(events []model.Event, windowMinutes int) []conflict.Conflict {
	return conflict.Detect(events, windowMinutes)
}

// MonthData builds the full grid for year/month. The caller supplies a
// valid year and month in 1..12; this is an internal orchestration engine,
// not an input boundary, so out-of-range months are a documented caller
// contract violation rather than a validated error.
//
// All date math is UTC-anchored proleptic Gregorian, which avoids
// timezone-dependent off-by-one day errors at month edges.
func (e *Engine) MonthData(year, month int, events []model.Event, requests []model.ChangeRequest, now time.Time) MonthData {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := first.AddDate(0, 1, 0)
	daysInMonth := nextMonth.AddDate(0, 0, -1).Day()

	pendingByDay := indexPendingRequests(requests)
	transitionsByDay := e.indexTransitions(first, nextMonth)
	eventsByDay := indexEvents(events)

	// Front padding for the partial first week (Sunday-start grid).
	days := make([]DayState, 0, int(first.Weekday())+daysInMonth)
	for i := 0; i < int(first.Weekday()); i++ {
		days = append(days, DayState{Padding: true, Events: []DayEvent{}})
	}

	for d := 1; d <= daysInMonth; d++ {
		date := first.AddDate(0, 0, d-1)
		key := model.DateKey(date)

		// Noon sampling dodges the midnight/handover boundary ambiguity:
		// on a transition day it reports the post-handover parent.
		status := e.rotation.Status(date.Add(12 * time.Hour))

		tr, hasTransition := transitionsByDay[key]
		color := ColorPrimary
		switch {
		case hasTransition:
			// A handover always divides the day between two parents.
			color = ColorSplit
		case status.Owner != 0:
			color = ColorSecondary
		}

		day := DayState{
			Date:          key,
			Day:           d,
			Color:         color,
			HoldingParent: status.Owner,
			Events:        e.mergeDayEvents(tr, hasTransition, eventsByDay[key]),
		}
		if req, ok := pendingByDay[key]; ok {
			day.HasPendingRequest = true
			id := req.ID
			day.PendingRequestID = &id
		}
		days = append(days, day)
	}

	slog.Debug(config.MsgMonthBuilt,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyYear, year,
		config.LogKeyMonth, month,
		config.LogKeyCount, len(days),
	)

	holder := e.rotation.Status(now).Owner
	return MonthData{
		Year:                year,
		Month:               month,
		Days:                days,
		UpcomingTransitions: e.upcomingTransitions(now),
		CurrentParent:       e.parentAt(holder),
		OtherParent:         e.parentAt(1 - holder),
	}
}

// mergeDayEvents assembles one day cell's display list: the handover
// pseudo-event always ranks first, then the day's real events with their
// category styles, truncated to the display budget.
func (e *Engine) mergeDayEvents(tr custody.Transition, hasTransition bool, dayEvents []model.Event) []DayEvent {
	merged := make([]DayEvent, 0, config.MaxDayEvents)

	if hasTransition {
		merged = append(merged, DayEvent{
			Title:      e.labels.Exchange(tr.At.Format("15:04")),
			Icon:       exchangeStyle.Icon,
			Color:      exchangeStyle.Color,
			IsExchange: true,
			Location:   tr.Location,
		})
	}

	for _, ev := range dayEvents {
		if len(merged) >= config.MaxDayEvents {
			break
		}
		style, ok := categoryStyles[ev.Category]
		if !ok {
			style = categoryStyles[model.CategoryOther]
		}
		merged = append(merged, DayEvent{
			Title:    ev.Title,
			Category: ev.Category,
			Icon:     style.Icon,
			Color:    style.Color,
			Location: ev.Location,
		})
	}

	return merged
}

// upcomingTransitions projects the sidebar list: handovers at or after now
// within the fixed lookahead window, labeled by calendar-day difference
// from now (not elapsed hours).
func (e *Engine) upcomingTransitions(now time.Time) []UpcomingTransition {
	horizon := now.AddDate(0, 0, config.UpcomingLookaheadDays)
	transitions := e.rotation.TransitionsInRange(now, horizon)

	out := make([]UpcomingTransition, 0, len(transitions))
	for _, tr := range transitions {
		out = append(out, UpcomingTransition{
			At:        tr.At,
			From:      e.parentAt(tr.From),
			To:        e.parentAt(tr.To),
			DayLabel:  e.dayLabel(now, tr.At),
			TimeLabel: tr.At.Format("15:04"),
			Location:  tr.Location,
		})
	}
	return out
}

func (e *Engine) dayLabel(now, at time.Time) string {
	switch daysBetweenUTC(now, at) {
	case 0:
		return e.labels.Today()
	case 1:
		return e.labels.Tomorrow()
	default:
		return e.labels.Weekday(at.UTC().Weekday())
	}
}

func (e *Engine) parentAt(idx int) model.Parent {
	if idx < 0 || idx >= len(e.family.Parents) {
		return model.Parent{}
	}
	return e.family.Parents[idx]
}

// indexPendingRequests expands every pending request's giving-up range
// into per-day keys, inclusive on both ends. Requests spanning month
// boundaries therefore mark days in every month queried independently.
func indexPendingRequests(requests []model.ChangeRequest) map[string]model.ChangeRequest {
	byDay := make(map[string]model.ChangeRequest)
	for _, req := range requests {
		if req.Status != model.StatusPending {
			continue
		}
		last := dayStartUTC(req.GivingUpEnd)
		for day := dayStartUTC(req.GivingUpStart); !day.After(last); day = day.AddDate(0, 0, 1) {
			key := model.DateKey(day)
			if _, exists := byDay[key]; !exists {
				byDay[key] = req
			}
		}
	}
	return byDay
}

func (e *Engine) indexTransitions(start, end time.Time) map[string]custody.Transition {
	byDay := make(map[string]custody.Transition)
	for _, tr := range e.rotation.TransitionsInRange(start, end) {
		byDay[model.DateKey(tr.At)] = tr
	}
	return byDay
}

// indexEvents groups events by display day: timed events belong to their
// start date's cell, all-day events mark every UTC day they span.
func indexEvents(events []model.Event) map[string][]model.Event {
	byDay := make(map[string][]model.Event)
	for _, ev := range events {
		if !ev.AllDay {
			key := model.DateKey(ev.Start)
			byDay[key] = append(byDay[key], ev)
			continue
		}

		last := dayStartUTC(ev.End)
		if last.Before(dayStartUTC(ev.Start)) {
			last = dayStartUTC(ev.Start)
		}
		for day := dayStartUTC(ev.Start); !day.After(last); day = day.AddDate(0, 0, 1) {
			key := model.DateKey(day)
			byDay[key] = append(byDay[key], ev)
		}
	}
	return byDay
}

// daysBetweenUTC is the calendar-day difference between two instants.
func daysBetweenUTC(a, b time.Time) int {
	return int(dayStartUTC(b).Sub(dayStartUTC(a)) / (24 * time.Hour))
}

func dayStartUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// englishLabels is the fallback when no localizer is injected.
type englishLabels struct{}

func (englishLabels) Today() string                  { return "Today" }
func (englishLabels) Tomorrow() string               { return "Tomorrow" }
func (englishLabels) Weekday(wd time.Weekday) string { return wd.String() }
func (englishLabels) Exchange(clock string) string   { return "Exchange " + clock }
