package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/attendance"
	"github.com/bluetowndev/worktrack/internal/config"
)

func testConfig() config.App {
	return config.App{
		Env:           "test",
		JWTIssuer:     "worktrack-dev",
		JWTSigningKey: "test-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		DevEmail:      "dev@worktrack.local",
		DevPassword:   "devpass",
	}
}

func TestDevServerFullFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(newRouter(testConfig(), attendance.NewStore()))
	defer srv.Close()

	client := api.New(srv.URL)
	ctx := context.Background()

	_, err := client.Login(ctx, "dev@worktrack.local", "nope")
	var serr *api.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Invalid email or password", serr.Message)

	res, err := client.Login(ctx, "dev@worktrack.local", "devpass")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.User)
	assert.Equal(t, "dev@worktrack.local", res.User.Email)

	profile, err := client.Profile(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Dev Field User", profile.FullName)

	loc, err := json.Marshal(map[string]float64{"lat": 12.9716, "lng": 77.5946})
	require.NoError(t, err)

	sub := api.AttendanceSubmission{
		Image:        "data:image/jpeg;base64,abcd",
		Location:     string(loc),
		LocationName: "Unknown",
		Purpose:      "Check In",
		SubPurpose:   "N/A",
		Feedback:     "N/A",
		Timestamp:    "2026-08-30T04:00:00Z",
		Date:         "2026-08-30",
	}
	require.NoError(t, client.SubmitAttendance(ctx, res.AccessToken, sub))

	sub.Purpose = "Check Out"
	sub.Timestamp = "2026-08-30T12:00:00Z"
	require.NoError(t, client.SubmitAttendance(ctx, res.AccessToken, sub))

	recs, err := client.ListAttendance(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Check In", recs[0].Purpose)
	assert.Equal(t, "Check Out", recs[1].Purpose)

	dists, err := client.CalculateDistance(ctx, res.AccessToken, "2026-08-30")
	require.NoError(t, err)
	require.Len(t, dists, 2)
	assert.True(t, dists[0].IsFirst)
	assert.False(t, dists[0].Distance.NA)
	assert.Equal(t, 0.0, dists[0].Distance.Value)
	assert.False(t, dists[1].IsFirst)
	assert.Equal(t, 0.0, dists[1].Distance.Value)
}

func TestDevServerRejectsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(newRouter(testConfig(), attendance.NewStore()))
	defer srv.Close()

	client := api.New(srv.URL)

	_, err := client.ListAttendance(context.Background(), "")
	var serr *api.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Authentication required", serr.Message)

	_, err = client.ListAttendance(context.Background(), "not-a-token")
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Session expired. Please log in again.", serr.Message)
}
