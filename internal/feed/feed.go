// Package feed renders a family's custody calendar as a subscribable
// iCalendar document: one VEVENT per projected handover and one per
// concrete event inside the horizon. Parents point their phone calendar
// apps at the served feed.
package feed

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"

	"coparentcal/internal/calendar"
	"coparentcal/internal/config"
	"coparentcal/internal/model"
)

// Build renders the feed for the engine's family: transitions and events
// from now through now+horizonDays. Events are expected to be concrete
// (recurrence already expanded). UIDs are deterministic hashes of stable
// fields so refreshes never duplicate entries in subscribed clients.
func Build(e *calendar.Engine, events []model.Event, now time.Time, horizonDays int) ([]byte, error) {
	if horizonDays <= 0 {
		horizonDays = config.DefaultHorizonDays
	}
	horizon := now.AddDate(0, 0, horizonDays)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	// Set raw: SetText tags unregistered X- properties with VALUE=TEXT,
	// which some calendar clients choke on for X-WR-CALNAME.
	calName := ical.NewProp(config.PropXWRCalName)
	calName.Value = fmt.Sprintf(config.FormatCalName, e.Family().Name)
	cal.Props.Set(calName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStamp := ical.NewProp(config.PropDTStamp)
	dtStamp.SetDateTime(now.UTC())

	family := e.Family()
	count := struct{ transitions, events int }{}

	for _, tr := range e.Rotation().TransitionsInRange(now, horizon) {
		ev := ical.NewEvent()
		ev.Props.SetText(config.PropUID, transitionUID(family.ID.String(), tr.At))
		ev.Props.SetText(config.PropSummary, e.Labels().Exchange(tr.At.Format("15:04")))
		ev.Props.SetText(config.PropDesc, fmt.Sprintf(config.FormatHandover,
			parentName(family, tr.From), parentName(family, tr.To)))
		if tr.Location != "" {
			ev.Props.SetText(config.PropLocation, tr.Location)
		}

		start := ical.NewProp(config.PropDTStart)
		start.SetDateTime(tr.At.UTC())
		ev.Props.Set(start)
		ev.Props.Set(dtStamp)

		cal.Children = append(cal.Children, ev.Component)
		count.transitions++
	}

	for _, src := range events {
		if src.Start.After(horizon) || src.End.Before(now.Add(-24*time.Hour)) {
			continue
		}

		ev := ical.NewEvent()
		ev.Props.SetText(config.PropUID, eventUID(src))
		ev.Props.SetText(config.PropSummary, src.Title)
		if src.Location != "" {
			ev.Props.SetText(config.PropLocation, src.Location)
		}

		start := ical.NewProp(config.PropDTStart)
		end := ical.NewProp(config.PropDTEnd)
		if src.AllDay {
			start.SetDate(src.Start.UTC())
			end.SetDate(src.End.UTC().AddDate(0, 0, 1)) // DTEND is exclusive for dates
		} else {
			start.SetDateTime(src.Start.UTC())
			end.SetDateTime(src.End.UTC())
		}
		ev.Props.Set(start)
		ev.Props.Set(end)
		ev.Props.Set(dtStamp)

		cal.Children = append(cal.Children, ev.Component)
		count.events++
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFeedEncode, err)
	}

	slog.Debug("feed built",
		config.LogKeyComponent, config.CompFeed,
		config.LogKeyFamily, family.ID.String(),
		slog.Int("transitions", count.transitions),
		slog.Int("events", count.events),
	)
	return buf.Bytes(), nil
}

// transitionUID derives a stable UID from the family and handover instant.
func transitionUID(familyID string, at time.Time) string {
	return hashUID(fmt.Sprintf(config.FormatHashInput,
		familyID, at.UTC().Format(time.RFC3339), config.UIDSalt))
}

// eventUID hashes the persistent event id with the instance start, so each
// expanded recurrence instance stays distinct across refreshes.
func eventUID(ev model.Event) string {
	return hashUID(fmt.Sprintf(config.FormatHashInput,
		ev.ID.String(), ev.Start.UTC().Format(time.RFC3339), config.UIDSalt))
}

func hashUID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID,
		fmt.Sprintf("%x", sum[:config.UIDHashLength]), config.ICalDomain)
}

func parentName(family model.Family, idx int) string {
	if idx < 0 || idx >= len(family.Parents) {
		return ""
	}
	return family.Parents[idx].Name
}
