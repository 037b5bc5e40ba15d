package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coparentcal/internal/calendar"
	"coparentcal/internal/config"
	"coparentcal/internal/custody"
	"coparentcal/internal/i18n"
	"coparentcal/internal/model"
	"coparentcal/internal/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// testNow is a Wednesday during parent B's week of the alternating
// rotation anchored 2024-01-01.
var testNow = time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC)

func seedFamily(t *testing.T, store *storage.Store) model.Family {
	t.Helper()
	fam := model.Family{
		ID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("server-test-family")),
		Name: "Doe-Nguyen",
		Parents: [2]model.Parent{
			{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("alice")), Name: "Alice"},
			{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("bob")), Name: "Bob"},
		},
		AnchorDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Schedule: custody.Schedule{
			Blocks: []custody.Block{
				{Owner: 0, Days: 7},
				{Owner: 1, Days: 7},
			},
			TransitionHour:   17,
			ExchangeLocation: "school parking lot",
		},
	}
	require.NoError(t, store.SaveFamily(context.Background(), fam))
	return fam
}

func seedEvent(t *testing.T, store *storage.Store, fam model.Family, title string, start, end time.Time) model.Event {
	t.Helper()
	ev := model.Event{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(title)),
		FamilyID:  fam.ID,
		Title:     title,
		Category:  model.CategoryMedical,
		Start:     start,
		End:       end,
		CreatedBy: fam.Parents[0].ID,
		Confirmed: true,
	}
	require.NoError(t, store.InsertEvent(context.Background(), ev))
	return ev
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *storage.Store, model.Family) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fam := seedFamily(t, store)
	labels := i18n.NewLabeler(i18n.NewBundle(), "en")
	return New(cfg, store, labels, fixedClock{testNow}), store, fam
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := get(t, srv.Router(), config.RouteHealth)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMonthEndpoint(t *testing.T) {
	srv, store, fam := newTestServer(t, nil)
	seedEvent(t, store, fam, "Dentist",
		time.Date(2024, time.March, 6, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 15, 0, 0, 0, time.UTC))

	rec := get(t, srv.Router(), "/api/families/"+fam.ID.String()+"/calendar/2024/3")
	require.Equal(t, http.StatusOK, rec.Code)

	var data calendar.MonthData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))

	assert.Equal(t, 2024, data.Year)
	assert.Equal(t, 3, data.Month)
	// March 2024 starts on a Friday: 5 padding cells + 31 days.
	require.Len(t, data.Days, 36)

	march6 := data.Days[5+5] // padding + offset to day 6
	require.Equal(t, 6, march6.Day)
	require.NotEmpty(t, march6.Events)
	assert.Equal(t, "Dentist", march6.Events[len(march6.Events)-1].Title)

	assert.Equal(t, "Bob", data.CurrentParent.Name)
	assert.NotEmpty(t, data.UpcomingTransitions)
}

func TestMonthEndpointExpandsRecurringEvents(t *testing.T) {
	srv, store, fam := newTestServer(t, nil)
	weekly := model.Event{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("soccer")),
		FamilyID:  fam.ID,
		Title:     "Soccer practice",
		Category:  model.CategoryActivity,
		Start:     time.Date(2024, time.January, 2, 16, 0, 0, 0, time.UTC),
		End:       time.Date(2024, time.January, 2, 17, 0, 0, 0, time.UTC),
		CreatedBy: fam.Parents[0].ID,
		RRule:     "FREQ=WEEKLY;BYDAY=TU",
	}
	require.NoError(t, store.InsertEvent(context.Background(), weekly))

	rec := get(t, srv.Router(), "/api/families/"+fam.ID.String()+"/calendar/2024/3")
	require.Equal(t, http.StatusOK, rec.Code)

	var data calendar.MonthData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))

	// Tuesdays in March 2024: 5, 12, 19, 26.
	var practiceDays []int
	for _, day := range data.Days {
		for _, ev := range day.Events {
			if ev.Title == "Soccer practice" {
				practiceDays = append(practiceDays, day.Day)
			}
		}
	}
	assert.Equal(t, []int{5, 12, 19, 26}, practiceDays)
}

func TestMonthEndpointRejectsBadInput(t *testing.T) {
	srv, _, fam := newTestServer(t, nil)
	router := srv.Router()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad family id", "/api/families/not-a-uuid/calendar/2024/3", http.StatusBadRequest},
		{"bad month", "/api/families/" + fam.ID.String() + "/calendar/2024/13", http.StatusBadRequest},
		{"bad year", "/api/families/" + fam.ID.String() + "/calendar/year/3", http.StatusBadRequest},
		{"unknown family", "/api/families/" + uuid.New().String() + "/calendar/2024/3", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.path)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestConflictsEndpoint(t *testing.T) {
	srv, store, fam := newTestServer(t, nil)
	seedEvent(t, store, fam, "Dentist",
		time.Date(2024, time.March, 6, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 15, 0, 0, 0, time.UTC))
	seedEvent(t, store, fam, "Recital",
		time.Date(2024, time.March, 6, 14, 50, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 15, 30, 0, 0, time.UTC))

	rec := get(t, srv.Router(), "/api/families/"+fam.ID.String()+"/conflicts")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		WindowMinutes int `json:"window_minutes"`
		Conflicts     []struct {
			A    model.Event `json:"a"`
			B    model.Event `json:"b"`
			Kind string      `json:"kind"`
		} `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, config.DefaultWindowMinutes, body.WindowMinutes)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "overlap", body.Conflicts[0].Kind)
}

func TestConflictsEndpointWindowParam(t *testing.T) {
	srv, store, fam := newTestServer(t, nil)
	seedEvent(t, store, fam, "Dentist",
		time.Date(2024, time.March, 6, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 15, 0, 0, 0, time.UTC))
	seedEvent(t, store, fam, "Recital",
		time.Date(2024, time.March, 6, 15, 10, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 15, 40, 0, 0, time.UTC))
	router := srv.Router()
	base := "/api/families/" + fam.ID.String() + "/conflicts"

	// 10 minutes apart: no conflict with window 0, buffer conflict with 30.
	rec := get(t, router, base+"?window=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conflicts":[]`)

	rec = get(t, router, base+"?window=30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "buffer_window")

	rec = get(t, router, base+"?window=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedEndpoint(t *testing.T) {
	srv, _, fam := newTestServer(t, nil)
	router := srv.Router()
	path := "/feeds/" + fam.ID.String() + config.FeedExtension

	// Before the first refresh the cache is cold.
	rec := get(t, router, path)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(config.HeaderRetryAfter))

	srv.RefreshFeeds(context.Background())

	rec = get(t, router, path)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.MimeTextCalendar, rec.Header().Get(config.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "Exchange 17:00")

	etag := rec.Header().Get(config.HeaderETag)
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(config.HeaderIfNoneMatch, etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestFeedEndpointUnknownPaths(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	srv.RefreshFeeds(context.Background())
	router := srv.Router()

	for _, path := range []string{
		"/feeds/" + uuid.New().String() + config.FeedExtension, // not cached
		"/feeds/not-a-uuid.ics",
		"/feeds/" + uuid.New().String(), // missing extension
	} {
		rec := get(t, router, path)
		assert.NotEqual(t, http.StatusOK, rec.Code, path)
	}
}

func TestBasicAuthProtectsAPI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "parent", Password: "secret"}
	srv, _, fam := newTestServer(t, cfg)
	router := srv.Router()
	path := "/api/families/" + fam.ID.String() + "/calendar/2024/3"

	rec := get(t, router, path)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.SetBasicAuth("parent", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for probes.
	rec = get(t, router, config.RouteHealth)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartServesAndShutsDown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:0"
	srv, _, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
