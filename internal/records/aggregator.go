// Package records fetches attendance history and enriches it with
// server-computed travel distances: one distance request per distinct
// calendar day, merged back into the record list by record identity.
package records

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/session"
)

// Fallback messages when the server supplies none.
const (
	msgFetchFailed  = "Failed to fetch records"
	msgNetworkError = "Network error. Please try again."
)

// Annotation is the distance information joined onto one record.
type Annotation struct {
	Distance api.Distance
	IsFirst  bool
}

// View is the display-ready result of one load: the record list plus
// the distance annotations keyed by record id. Err is the user-facing
// message when the primary fetch failed; distance failures never set
// it, they just leave records unannotated.
type View struct {
	Records   []api.AttendanceRecord
	Distances map[api.RecordID]Annotation
	Err       string
}

// Aggregator loads attendance views for the current session.
type Aggregator struct {
	client *api.Client
	store  *session.Store
}

// New creates an aggregator.
func New(client *api.Client, store *session.Store) *Aggregator {
	return &Aggregator{client: client, store: store}
}

// Fetch runs phase one only: the full record list. On failure it
// returns an empty set plus the user-facing message. The dashboard's
// day view uses this directly since it shows no distances.
func (a *Aggregator) Fetch(ctx context.Context) ([]api.AttendanceRecord, string) {
	recs, err := a.client.ListAttendance(ctx, a.store.Token())
	if err != nil {
		return nil, failureMessage(err)
	}
	return recs, ""
}

// Load runs the two-phase fetch. Phase one fetches all records; on
// failure the view is empty with an error message and no distance
// requests are made. Phase two requests distances for each distinct
// date and merges the results.
func (a *Aggregator) Load(ctx context.Context) View {
	recs, errMsg := a.Fetch(ctx)
	if errMsg != "" {
		return View{Err: errMsg}
	}

	return View{
		Records:   recs,
		Distances: a.annotate(ctx, a.store.Token(), recs),
	}
}

// annotate issues one calculateDistance call per distinct date, fanned
// out concurrently since the requests are independent and idempotent.
// Each id appears in exactly one date's response, so merge order does
// not matter. A failed date is skipped; its records simply render
// without a distance.
func (a *Aggregator) annotate(ctx context.Context, token string, recs []api.AttendanceRecord) map[api.RecordID]Annotation {
	dates := DistinctDates(recs)
	merged := make(map[api.RecordID]Annotation)
	if len(dates) == 0 {
		return merged
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, date := range dates {
		wg.Add(1)
		go func(date string) {
			defer wg.Done()
			points, err := a.client.CalculateDistance(ctx, token, date)
			if err != nil {
				return
			}
			mu.Lock()
			for _, pt := range points {
				merged[pt.AttendanceID] = Annotation{Distance: pt.Distance, IsFirst: pt.IsFirst}
			}
			mu.Unlock()
		}(date)
	}
	wg.Wait()
	return merged
}

// DistinctDates returns the distinct calendar dates (YYYY-MM-DD, UTC)
// present in the records, in first-seen order. Records whose timestamp
// cannot be parsed contribute no date.
func DistinctDates(recs []api.AttendanceRecord) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, r := range recs {
		key, ok := DateKey(r.Timestamp)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		dates = append(dates, key)
	}
	return dates
}

// DateKey derives the UTC calendar date from a record timestamp.
func DateKey(ts string) (string, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

// FilterByDay returns the records falling on the given date key,
// preserving order. Used by the dashboard's day view.
func FilterByDay(recs []api.AttendanceRecord, day string) []api.AttendanceRecord {
	var out []api.AttendanceRecord
	for _, r := range recs {
		if key, ok := DateKey(r.Timestamp); ok && key == day {
			out = append(out, r)
		}
	}
	return out
}

// RenderDistance formats one annotation for display. The first record
// of a day always renders the fixed zero string regardless of the
// numeric value the server sent.
func RenderDistance(a Annotation) string {
	if a.IsFirst {
		return "0.00 km (first record)"
	}
	if a.Distance.NA {
		return "N/A"
	}
	return a.Distance.String() + " km"
}

// failureMessage maps a fetch error to the message the screen shows:
// the server's own message when it sent one, otherwise the generic
// fetch fallback, and the network fallback for transport errors.
func failureMessage(err error) string {
	var srvErr *api.ServerError
	if errors.As(err, &srvErr) {
		if srvErr.Message != "" {
			return srvErr.Message
		}
		return msgFetchFailed
	}
	return msgNetworkError
}
