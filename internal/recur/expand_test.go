package recur

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coparentcal/internal/model"
)

var (
	rangeStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
)

func weeklySwim() model.Event {
	start := time.Date(2024, 3, 5, 16, 0, 0, 0, time.UTC) // a Tuesday
	return model.Event{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("swim")),
		Title:    "swim practice",
		Category: model.CategoryActivity,
		Start:    start,
		End:      start.Add(time.Hour),
		RRule:    "FREQ=WEEKLY;BYDAY=TU",
	}
}

func TestExpand_PassThroughNonRecurring(t *testing.T) {
	inRange := model.Event{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("in")),
		Title: "dentist",
		Start: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	outOfRange := model.Event{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("out")),
		Title: "april picnic",
		Start: time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 10, 10, 0, 0, 0, time.UTC),
	}

	got := Expand([]model.Event{inRange, outOfRange}, rangeStart, rangeEnd, 0)

	require.Len(t, got, 1)
	assert.Equal(t, "dentist", got[0].Title)
}

func TestExpand_WeeklyRule(t *testing.T) {
	got := Expand([]model.Event{weeklySwim()}, rangeStart, rangeEnd, 0)

	// Tuesdays from Mar 5: 5, 12, 19, 26.
	require.Len(t, got, 4)
	for i, want := range []int{5, 12, 19, 26} {
		assert.Equal(t, want, got[i].Start.Day())
		assert.Equal(t, "swim practice", got[i].Title)
		assert.Empty(t, got[i].RRule, "instances are concrete events")
		assert.Equal(t, time.Hour, got[i].End.Sub(got[i].Start), "duration is preserved")
	}
}

func TestExpand_ExDateRemovesInstance(t *testing.T) {
	ev := weeklySwim()
	ev.ExDates = []time.Time{time.Date(2024, 3, 19, 16, 0, 0, 0, time.UTC)}

	got := Expand([]model.Event{ev}, rangeStart, rangeEnd, 0)

	require.Len(t, got, 3)
	for _, inst := range got {
		assert.NotEqual(t, 19, inst.Start.Day(), "EXDATE instance must be removed")
	}
}

func TestExpand_CapTruncates(t *testing.T) {
	ev := weeklySwim()
	ev.RRule = "FREQ=DAILY"

	got := Expand([]model.Event{ev}, rangeStart, rangeEnd, 5)
	assert.Len(t, got, 5)
}

func TestExpand_MalformedRuleDropsOnlyThatEvent(t *testing.T) {
	bad := weeklySwim()
	bad.RRule = "FREQ=NONSENSE"
	good := model.Event{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("ok")),
		Title: "parent-teacher night",
		Start: time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 14, 19, 0, 0, 0, time.UTC),
	}

	got := Expand([]model.Event{bad, good}, rangeStart, rangeEnd, 0)

	require.Len(t, got, 1)
	assert.Equal(t, "parent-teacher night", got[0].Title)
}

func TestExpand_AllDayInstancesAlignToDays(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC) // a Monday, time-of-day ignored
	ev := model.Event{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("library")),
		Title:    "library day",
		Category: model.CategorySchool,
		Start:    start,
		End:      start,
		AllDay:   true,
		RRule:    "FREQ=WEEKLY;BYDAY=MO;COUNT=2",
	}

	got := Expand([]model.Event{ev}, rangeStart, rangeEnd, 0)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, got[0].Start, got[0].End, "zero-span all-day stays on one day")
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), got[1].Start)
	assert.True(t, got[0].AllDay)
}
