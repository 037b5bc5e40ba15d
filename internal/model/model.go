package model

import (
	"time"

	"github.com/google/uuid"

	"coparentcal/internal/custody"
)

// Category classifies a calendar event for icon/color selection.
type Category string

const (
	CategoryHoliday  Category = "holiday"
	CategoryActivity Category = "activity"
	CategoryMedical  Category = "medical"
	CategorySchool   Category = "school"
	CategoryOther    Category = "other"
)

// RequestStatus is the lifecycle state of a schedule change request.
// Only pending requests influence calendar rendering.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusDeclined RequestStatus = "declined"
)

// Parent is one of the two adults sharing custody.
// Parents are ordered within a Family; index 0 is the "primary" parent
// for coloring purposes only, not a legal distinction.
type Parent struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

// Child is a minor covered by the custody schedule.
type Child struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
}

// Family is the aggregate root: two ordered parents, children, and the
// anchor date from which the rotation cycle is measured. AnchorDate is a
// UTC date with no time-of-day component.
type Family struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Parents    [2]Parent        `json:"parents"`
	Children   []Child          `json:"children"`
	AnchorDate time.Time        `json:"anchor_date"`
	Schedule   custody.Schedule `json:"schedule"`
}

// Event is an immutable calendar event record. Start/End are instants in
// UTC; AllDay events are interpreted as covering the full UTC day(s) they
// span regardless of their time-of-day components.
//
// RRule and ExDates are optional: a non-empty RRule marks the event as
// recurring, to be expanded into concrete instances before rendering.
type Event struct {
	ID        uuid.UUID  `json:"id"`
	FamilyID  uuid.UUID  `json:"family_id"`
	Title     string     `json:"title"`
	Category  Category   `json:"category"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	AllDay    bool       `json:"all_day"`
	Location  string     `json:"location,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	Confirmed bool       `json:"confirmed"`
	RRule     string     `json:"rrule,omitempty"`
	ExDates   []time.Time `json:"exdates,omitempty"`
}

// ChangeRequest is a proposed exception to the rotation: one parent gives
// up a date range and proposes a replacement range. The acceptance workflow
// lives outside this engine; rendering only cares about pending requests.
type ChangeRequest struct {
	ID            uuid.UUID     `json:"id"`
	FamilyID      uuid.UUID     `json:"family_id"`
	RequestedBy   uuid.UUID     `json:"requested_by"`
	GivingUpStart time.Time     `json:"giving_up_start"`
	GivingUpEnd   time.Time     `json:"giving_up_end"`
	ProposedStart time.Time     `json:"proposed_start"`
	ProposedEnd   time.Time     `json:"proposed_end"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DateKey renders t as a UTC yyyy-mm-dd string, the canonical per-day
// lookup key used across the calendar packages.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
