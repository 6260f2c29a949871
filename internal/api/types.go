package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UserProfile is the user object returned by the login and profile
// endpoints. Login responses may carry only a short form (name); the
// profile endpoint fills in the rest.
type UserProfile struct {
	Name         string `json:"name,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	Email        string `json:"email,omitempty"`
	IsVerified   bool   `json:"isVerified,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	State        string `json:"state,omitempty"`
	BaseLocation string `json:"baseLocation,omitempty"`
}

// LoginResult holds the token pair and optional user returned on login.
type LoginResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *UserProfile `json:"user"`
}

// AttendanceSubmission is the wire payload for one attendance upload.
// Location is a JSON-encoded {"lat":..,"lng":..} string and SubPurpose
// and Feedback always carry the same value; both quirks are part of
// the backend contract.
type AttendanceSubmission struct {
	Image        string `json:"image"`
	Location     string `json:"location"`
	LocationName string `json:"locationName"`
	Purpose      string `json:"purpose"`
	SubPurpose   string `json:"subPurpose"`
	Feedback     string `json:"feedback"`
	Timestamp    string `json:"timestamp"`
	Date         string `json:"date"`
}

// RecordID is an attendance record identifier. The backend is not
// consistent about the JSON type (numeric ids and string ids both
// occur), so it decodes from either.
type RecordID string

func (r *RecordID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty record id")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*r = RecordID(n.String())
	return nil
}

func (r RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// AttendanceRecord is one stored attendance entry as returned by the
// viewAttendance endpoint. Timestamp stays a string; callers derive
// the calendar date from it without trusting full parseability.
type AttendanceRecord struct {
	ID           RecordID `json:"id"`
	Image        string   `json:"image"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	LocationName string   `json:"locationName"`
	Purpose      string   `json:"purpose"`
	SubPurpose   string   `json:"subPurpose"`
	Timestamp    string   `json:"timestamp"`
}

// Distance is a server-computed distance value: either a number of
// kilometres or the literal string "N/A" when no distance could be
// computed.
type Distance struct {
	NA    bool
	Value float64
}

func (d *Distance) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		// Any non-numeric string is treated as not-available.
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			d.Value = v
			return nil
		}
		d.NA = true
		return nil
	}
	return json.Unmarshal(data, &d.Value)
}

func (d Distance) MarshalJSON() ([]byte, error) {
	if d.NA {
		return json.Marshal("N/A")
	}
	return json.Marshal(d.Value)
}

// String renders the value the way the records screen shows it, without
// the unit suffix.
func (d Distance) String() string {
	if d.NA {
		return "N/A"
	}
	return strconv.FormatFloat(d.Value, 'f', -1, 64)
}

// DistanceAnnotation is one entry of a calculateDistance response.
type DistanceAnnotation struct {
	AttendanceID RecordID `json:"attendanceId"`
	Distance     Distance `json:"distance"`
	IsFirst      bool     `json:"isFirst"`
}
