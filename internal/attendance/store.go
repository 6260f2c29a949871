// Package attendance is the devserver's in-memory record store. It
// stands in for the hosted backend during development: records live
// for the process lifetime and per-day travel distances are computed
// with the haversine formula between consecutive records.
package attendance

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one stored attendance entry. The JSON shape matches what
// the viewAttendance endpoint returns to the client.
type Record struct {
	ID           string    `json:"id"`
	Image        string    `json:"image"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	LocationName string    `json:"locationName"`
	Purpose      string    `json:"purpose"`
	SubPurpose   string    `json:"subPurpose"`
	Timestamp    time.Time `json:"timestamp"`

	// Feedback is stored but never echoed back in record listings.
	Feedback string `json:"-"`
	// HasCoords is false when the submission's location string could
	// not be parsed; such records get "N/A" distances.
	HasCoords bool `json:"-"`
}

// PointDistance is one entry of a calculateDistance response.
// Distance is either a rounded kilometre count or the string "N/A".
type PointDistance struct {
	AttendanceID string `json:"attendanceId"`
	Distance     any    `json:"distance"`
	IsFirst      bool   `json:"isFirst"`
}

// Store keeps records per user email.
type Store struct {
	mu     sync.RWMutex
	byUser map[string][]Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byUser: make(map[string][]Record)}
}

// Append stores a record for the user, assigning it an id.
func (s *Store) Append(user string, r Record) Record {
	r.ID = uuid.NewString()
	s.mu.Lock()
	s.byUser[user] = append(s.byUser[user], r)
	s.mu.Unlock()
	return r
}

// List returns the user's records ordered by timestamp.
func (s *Store) List(user string) []Record {
	s.mu.RLock()
	recs := make([]Record, len(s.byUser[user]))
	copy(recs, s.byUser[user])
	s.mu.RUnlock()

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
	return recs
}

// Day returns the user's records on the given UTC date key
// (YYYY-MM-DD), ordered by timestamp.
func (s *Store) Day(user, date string) []Record {
	var out []Record
	for _, r := range s.List(user) {
		if r.Timestamp.UTC().Format("2006-01-02") == date {
			out = append(out, r)
		}
	}
	return out
}

// Distances computes point-to-point distances between the user's
// consecutive records on one date. The first record of the day is
// flagged IsFirst with distance 0; a hop touching a record without
// usable coordinates yields "N/A".
func (s *Store) Distances(user, date string) []PointDistance {
	recs := s.Day(user, date)
	out := make([]PointDistance, 0, len(recs))
	for i, r := range recs {
		if i == 0 {
			out = append(out, PointDistance{AttendanceID: r.ID, Distance: 0.0, IsFirst: true})
			continue
		}
		prev := recs[i-1]
		if !r.HasCoords || !prev.HasCoords {
			out = append(out, PointDistance{AttendanceID: r.ID, Distance: "N/A"})
			continue
		}
		km := haversineKm(prev.Lat, prev.Lng, r.Lat, r.Lng)
		out = append(out, PointDistance{AttendanceID: r.ID, Distance: math.Round(km*100) / 100})
	}
	return out
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two points in
// kilometres.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
