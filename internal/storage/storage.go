// Package storage persists families, events, and change requests in
// SQLite, exposing the narrow fetch contracts the calendar service reads
// through. Times are stored as RFC 3339 UTC strings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"coparentcal/internal/config"
	"coparentcal/internal/custody"
	"coparentcal/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const driverName = "sqlite"

// Store wraps the SQLite handle. Safe for concurrent use; database/sql
// pools connections internally.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreSchema, err)
	}
	slog.Debug(config.MsgStoreOpened,
		config.LogKeyComponent, config.CompStorage,
		config.LogKeyPath, path,
	)
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Safe to run multiple times - uses IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS family (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    anchor_date TEXT NOT NULL,
    transition_hour INTEGER NOT NULL,
    exchange_location TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS parent (
    family_id TEXT NOT NULL REFERENCES family(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL CHECK (idx IN (0, 1)),
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (family_id, idx)
);

CREATE TABLE IF NOT EXISTS child (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL REFERENCES family(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    birth_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS block (
    family_id TEXT NOT NULL REFERENCES family(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    owner INTEGER NOT NULL,
    days INTEGER NOT NULL CHECK (days >= 1),
    label TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (family_id, position)
);

CREATE TABLE IF NOT EXISTS event (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL REFERENCES family(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    start_at TEXT NOT NULL,
    end_at TEXT NOT NULL,
    all_day INTEGER NOT NULL DEFAULT 0,
    location TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    confirmed INTEGER NOT NULL DEFAULT 0,
    rrule TEXT NOT NULL DEFAULT '',
    exdates TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_event_family_start ON event(family_id, start_at);

CREATE TABLE IF NOT EXISTS change_request (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL REFERENCES family(id) ON DELETE CASCADE,
    requested_by TEXT NOT NULL,
    giving_up_start TEXT NOT NULL,
    giving_up_end TEXT NOT NULL,
    proposed_start TEXT NOT NULL,
    proposed_end TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'declined')),
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_change_request_family_status ON change_request(family_id, status);
`

// SaveFamily upserts the family aggregate: record, parents, children, and
// schedule blocks, replacing prior parents/children/blocks wholesale.
func (s *Store) SaveFamily(ctx context.Context, f model.Family) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO family (id, name, anchor_date, transition_hour, exchange_location)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			anchor_date = excluded.anchor_date,
			transition_hour = excluded.transition_hour,
			exchange_location = excluded.exchange_location
	`, f.ID.String(), f.Name, formatTime(f.AnchorDate),
		f.Schedule.TransitionHour, f.Schedule.ExchangeLocation)
	if err != nil {
		return err
	}

	for _, table := range []string{"parent", "child", "block"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE family_id = ?", f.ID.String()); err != nil {
			return err
		}
	}

	for idx, p := range f.Parents {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO parent (family_id, idx, id, name, email, phone)
			VALUES (?, ?, ?, ?, ?, ?)
		`, f.ID.String(), idx, p.ID.String(), p.Name, p.Email, p.Phone)
		if err != nil {
			return err
		}
	}

	for _, c := range f.Children {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO child (id, family_id, name, birth_date)
			VALUES (?, ?, ?, ?)
		`, c.ID.String(), f.ID.String(), c.Name, formatTime(c.BirthDate))
		if err != nil {
			return err
		}
	}

	for pos, b := range f.Schedule.Blocks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO block (family_id, position, owner, days, label)
			VALUES (?, ?, ?, ?, ?)
		`, f.ID.String(), pos, b.Owner, b.Days, b.Label)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Family loads the full aggregate by id.
func (s *Store) Family(ctx context.Context, id uuid.UUID) (model.Family, error) {
	f := model.Family{ID: id}

	var anchor string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, anchor_date, transition_hour, exchange_location
		FROM family WHERE id = ?
	`, id.String()).Scan(&f.Name, &anchor, &f.Schedule.TransitionHour, &f.Schedule.ExchangeLocation)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Family{}, fmt.Errorf("family %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Family{}, err
	}
	if f.AnchorDate, err = parseTime(anchor); err != nil {
		return model.Family{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, id, name, email, phone FROM parent
		WHERE family_id = ? ORDER BY idx
	`, id.String())
	if err != nil {
		return model.Family{}, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var idx int
		var p model.Parent
		var pid string
		if err := rows.Scan(&idx, &pid, &p.Name, &p.Email, &p.Phone); err != nil {
			return model.Family{}, err
		}
		if p.ID, err = uuid.Parse(pid); err != nil {
			return model.Family{}, err
		}
		if idx >= 0 && idx < len(f.Parents) {
			f.Parents[idx] = p
		}
	}
	if err := rows.Err(); err != nil {
		return model.Family{}, err
	}

	if f.Children, err = s.children(ctx, id); err != nil {
		return model.Family{}, err
	}
	if f.Schedule.Blocks, err = s.blocks(ctx, id); err != nil {
		return model.Family{}, err
	}
	return f, nil
}

func (s *Store) children(ctx context.Context, familyID uuid.UUID) ([]model.Child, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, birth_date FROM child
		WHERE family_id = ? ORDER BY name
	`, familyID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Child
	for rows.Next() {
		var c model.Child
		var id, birth string
		if err := rows.Scan(&id, &c.Name, &birth); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if c.BirthDate, err = parseTime(birth); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) blocks(ctx context.Context, familyID uuid.UUID) ([]custody.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, days, label FROM block
		WHERE family_id = ? ORDER BY position
	`, familyID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []custody.Block
	for rows.Next() {
		var b custody.Block
		if err := rows.Scan(&b.Owner, &b.Days, &b.Label); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FamilyIDs lists all stored families, for the feed refresh loop.
func (s *Store) FamilyIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM family ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InsertEvent stores one event record.
func (s *Store) InsertEvent(ctx context.Context, ev model.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event (id, family_id, title, category, start_at, end_at,
			all_day, location, created_by, confirmed, rrule, exdates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID.String(), ev.FamilyID.String(), ev.Title, string(ev.Category),
		formatTime(ev.Start), formatTime(ev.End), boolInt(ev.AllDay), ev.Location,
		ev.CreatedBy.String(), boolInt(ev.Confirmed), ev.RRule, formatExDates(ev.ExDates))
	return err
}

// EventsInRange fetches events intersecting [start, end). Recurring
// events are always included regardless of their DTSTART: the recurrence
// expander decides which instances fall in range.
func (s *Store) EventsInRange(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, title, category, start_at, end_at,
			all_day, location, created_by, confirmed, rrule, exdates
		FROM event
		WHERE family_id = ?
		  AND (rrule != '' OR (start_at < ? AND end_at > ?))
		ORDER BY start_at, id
	`, familyID.String(), formatTime(end), formatTime(start))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// InsertChangeRequest stores one request record.
func (s *Store) InsertChangeRequest(ctx context.Context, req model.ChangeRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_request (id, family_id, requested_by,
			giving_up_start, giving_up_end, proposed_start, proposed_end,
			status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID.String(), req.FamilyID.String(), req.RequestedBy.String(),
		formatTime(req.GivingUpStart), formatTime(req.GivingUpEnd),
		formatTime(req.ProposedStart), formatTime(req.ProposedEnd),
		string(req.Status), formatTime(req.CreatedAt))
	return err
}

// PendingRequests fetches the family's pending change requests, oldest
// first.
func (s *Store) PendingRequests(ctx context.Context, familyID uuid.UUID) ([]model.ChangeRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, requested_by, giving_up_start, giving_up_end,
			proposed_start, proposed_end, status, created_at
		FROM change_request
		WHERE family_id = ? AND status = ?
		ORDER BY created_at, id
	`, familyID.String(), string(model.StatusPending))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ChangeRequest
	for rows.Next() {
		var req model.ChangeRequest
		var id, famID, reqBy, gs, ge, ps, pe, status, created string
		if err := rows.Scan(&id, &famID, &reqBy, &gs, &ge, &ps, &pe, &status, &created); err != nil {
			return nil, err
		}
		if req.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if req.FamilyID, err = uuid.Parse(famID); err != nil {
			return nil, err
		}
		if req.RequestedBy, err = uuid.Parse(reqBy); err != nil {
			return nil, err
		}
		req.Status = model.RequestStatus(status)
		fields := []struct {
			dst *time.Time
			raw string
		}{
			{&req.GivingUpStart, gs}, {&req.GivingUpEnd, ge},
			{&req.ProposedStart, ps}, {&req.ProposedEnd, pe},
			{&req.CreatedAt, created},
		}
		for _, f := range fields {
			if *f.dst, err = parseTime(f.raw); err != nil {
				return nil, err
			}
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var ev model.Event
	var id, famID, category, start, end, createdBy, exdates string
	var allDay, confirmed int

	err := rows.Scan(&id, &famID, &ev.Title, &category, &start, &end,
		&allDay, &ev.Location, &createdBy, &confirmed, &ev.RRule, &exdates)
	if err != nil {
		return model.Event{}, err
	}

	if ev.ID, err = uuid.Parse(id); err != nil {
		return model.Event{}, err
	}
	if ev.FamilyID, err = uuid.Parse(famID); err != nil {
		return model.Event{}, err
	}
	if ev.CreatedBy, err = uuid.Parse(createdBy); err != nil {
		return model.Event{}, err
	}
	if ev.Start, err = parseTime(start); err != nil {
		return model.Event{}, err
	}
	if ev.End, err = parseTime(end); err != nil {
		return model.Event{}, err
	}
	if ev.ExDates, err = parseExDates(exdates); err != nil {
		return model.Event{}, err
	}
	ev.Category = model.Category(category)
	ev.AllDay = allDay != 0
	ev.Confirmed = confirmed != 0
	return ev, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

func formatExDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = formatTime(d)
	}
	return strings.Join(parts, ",")
}

func parseExDates(raw string) ([]time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Time, len(parts))
	for i, p := range parts {
		t, err := parseTime(p)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
