package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/session"
)

func newTestAggregator(baseURL string) *Aggregator {
	store := session.NewStore()
	store.Set(session.Session{AccessToken: "tok", RefreshToken: "ref"})
	return New(api.New(baseURL), store)
}

// recordsHandler serves viewAttendance and calculateDistance, counting
// distance requests per date.
type recordsHandler struct {
	mu            sync.Mutex
	listBody      string
	distanceByDay map[string]string // date -> response body; missing date replies 500
	dateHits      map[string]int
}

func (h *recordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/user/viewAttendance":
		w.Write([]byte(h.listBody))
	case "/api/v1/user/calculateDistance":
		var req struct {
			Date string `json:"date"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		h.mu.Lock()
		h.dateHits[req.Date]++
		body, ok := h.distanceByDay[req.Date]
		h.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"message":"boom"}`))
			return
		}
		w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestLoadDedupesDatesAndMerges(t *testing.T) {
	h := &recordsHandler{
		listBody: `{"success":true,"data":[
			{"id":1,"locationName":"A","purpose":"Check In","timestamp":"2026-08-29T08:00:00Z"},
			{"id":2,"locationName":"B","purpose":"Site Visit","timestamp":"2026-08-29T11:30:00Z"},
			{"id":3,"locationName":"C","purpose":"Check In","timestamp":"2026-08-30T08:15:00Z"}
		]}`,
		distanceByDay: map[string]string{
			"2026-08-29": `{"success":true,"pointToPointDistances":[
				{"attendanceId":1,"distance":0,"isFirst":true},
				{"attendanceId":2,"distance":4.56,"isFirst":false}
			]}`,
			"2026-08-30": `{"success":true,"pointToPointDistances":[
				{"attendanceId":3,"distance":0,"isFirst":true}
			]}`,
		},
		dateHits: map[string]int{},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	require.Empty(t, view.Err)
	require.Len(t, view.Records, 3)

	// Exactly one distance request per distinct date.
	assert.Equal(t, map[string]int{"2026-08-29": 1, "2026-08-30": 1}, h.dateHits)

	require.Len(t, view.Distances, 3)
	assert.True(t, view.Distances["1"].IsFirst)
	assert.Equal(t, 4.56, view.Distances["2"].Distance.Value)
	assert.True(t, view.Distances["3"].IsFirst)
}

func TestLoadPrimaryFailure(t *testing.T) {
	h := &recordsHandler{
		listBody: `{"success":false,"message":"Expired"}`,
		dateHits: map[string]int{},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	assert.Empty(t, view.Records)
	assert.Equal(t, "Expired", view.Err)
	assert.Empty(t, h.dateHits, "no distance requests after a failed fetch")
}

func TestLoadPrimaryFailureWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	assert.Equal(t, "Failed to fetch records", view.Err)
}

func TestLoadNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	assert.Equal(t, "Network error. Please try again.", view.Err)
}

func TestDistanceFailureDegradesSilently(t *testing.T) {
	h := &recordsHandler{
		listBody: `{"success":true,"data":[
			{"id":1,"timestamp":"2026-08-29T08:00:00Z"},
			{"id":2,"timestamp":"2026-08-30T08:00:00Z"}
		]}`,
		distanceByDay: map[string]string{
			// 2026-08-29 missing -> that request fails.
			"2026-08-30": `{"success":true,"pointToPointDistances":[{"attendanceId":2,"distance":0,"isFirst":true}]}`,
		},
		dateHits: map[string]int{},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	require.Empty(t, view.Err, "enrichment failure must not surface an error")
	require.Len(t, view.Records, 2)

	_, ok := view.Distances["1"]
	assert.False(t, ok, "failed date's records stay unannotated")
	assert.True(t, view.Distances["2"].IsFirst)
}

func TestDistinctDatesSkipUnparseable(t *testing.T) {
	recs := []api.AttendanceRecord{
		{ID: "1", Timestamp: "2026-08-29T08:00:00Z"},
		{ID: "2", Timestamp: "not-a-timestamp"},
		{ID: "3", Timestamp: "2026-08-29T22:00:00Z"},
	}
	assert.Equal(t, []string{"2026-08-29"}, DistinctDates(recs))
}

func TestRenderDistance(t *testing.T) {
	// The first record of a day renders the fixed string even when the
	// server sent a nonzero value.
	first := Annotation{IsFirst: true, Distance: api.Distance{Value: 9.87}}
	assert.Equal(t, "0.00 km (first record)", RenderDistance(first))

	na := Annotation{Distance: api.Distance{NA: true}}
	assert.Equal(t, "N/A", RenderDistance(na))

	plain := Annotation{Distance: api.Distance{Value: 1.23}}
	assert.Equal(t, "1.23 km", RenderDistance(plain))

	whole := Annotation{Distance: api.Distance{Value: 2}}
	assert.Equal(t, "2 km", RenderDistance(whole))
}

func TestFilterByDay(t *testing.T) {
	recs := []api.AttendanceRecord{
		{ID: "1", Timestamp: "2026-08-29T08:00:00Z"},
		{ID: "2", Timestamp: "2026-08-30T01:00:00Z"},
		{ID: "3", Timestamp: "2026-08-29T23:59:00Z"},
	}
	got := FilterByDay(recs, "2026-08-29")
	require.Len(t, got, 2)
	assert.Equal(t, api.RecordID("1"), got[0].ID)
	assert.Equal(t, api.RecordID("3"), got[1].ID)
}

func TestAnnotateManyDatesConcurrently(t *testing.T) {
	var recs []string
	distanceByDay := map[string]string{}
	for day := 1; day <= 20; day++ {
		date := fmt.Sprintf("2026-07-%02d", day)
		recs = append(recs, fmt.Sprintf(`{"id":%d,"timestamp":"%sT09:00:00Z"}`, day, date))
		distanceByDay[date] = fmt.Sprintf(
			`{"success":true,"pointToPointDistances":[{"attendanceId":%d,"distance":0,"isFirst":true}]}`, day)
	}
	h := &recordsHandler{
		listBody:      `{"success":true,"data":[` + strings.Join(recs, ",") + `]}`,
		distanceByDay: distanceByDay,
		dateHits:      map[string]int{},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	view := newTestAggregator(srv.URL).Load(context.Background())
	require.Empty(t, view.Err)
	assert.Len(t, view.Distances, 20)
	for date, hits := range h.dateHits {
		assert.Equalf(t, 1, hits, "date %s requested more than once", date)
	}
}
