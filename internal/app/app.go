// Package app is the terminal shell of the client: the screens of the
// mobile app rendered as interactive prompts, with navigation driven
// by single-letter commands. The session lives in memory for the life
// of the process.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/capture"
	"github.com/bluetowndev/worktrack/internal/device"
	"github.com/bluetowndev/worktrack/internal/records"
	"github.com/bluetowndev/worktrack/internal/session"
)

type screen int

const (
	screenSplash screen = iota
	screenLogin
	screenDashboard
	screenProfile
	screenAttendance
	screenRecords
	screenQuit
)

// App wires the screens to the API client, session store and device.
type App struct {
	client *api.Client
	store  *session.Store
	dev    *device.Device
	agg    *records.Aggregator

	in  *bufio.Scanner
	out io.Writer
	eof bool
}

// New builds the app over the given collaborators, reading commands
// from in and rendering to out.
func New(client *api.Client, store *session.Store, dev *device.Device, in io.Reader, out io.Writer) *App {
	return &App{
		client: client,
		store:  store,
		dev:    dev,
		agg:    records.New(client, store),
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run drives the screen loop until the user quits or input ends.
func (a *App) Run(ctx context.Context) error {
	cur := screenSplash
	for cur != screenQuit {
		// Each screen gets its own context, cancelled on navigation,
		// so a response arriving after leaving the screen is dropped
		// instead of applied.
		screenCtx, cancel := context.WithCancel(ctx)
		var next screen
		switch cur {
		case screenSplash:
			next = a.splash()
		case screenLogin:
			next = a.login(screenCtx)
		case screenDashboard:
			next = a.dashboard(screenCtx)
		case screenProfile:
			next = a.profile(screenCtx)
		case screenAttendance:
			next = a.attendance(screenCtx)
		case screenRecords:
			next = a.records(screenCtx)
		}
		cancel()
		if a.eof {
			break
		}
		cur = next
	}
	return nil
}

func (a *App) splash() screen {
	fmt.Fprintln(a.out, "WorkTrack")
	fmt.Fprintln(a.out, "Simplifying field work")
	a.prompt("[Enter] Next")
	return screenLogin
}

func (a *App) login(ctx context.Context) screen {
	fmt.Fprintln(a.out, "== Sign in ==")
	email := a.prompt("Email")
	password := a.prompt("Password")

	if email == "" || password == "" {
		fmt.Fprintln(a.out, "Please enter both email and password")
		return screenLogin
	}

	result, err := a.client.Login(ctx, email, password)
	if err != nil {
		fmt.Fprintln(a.out, loginFailureMessage(err))
		return screenLogin
	}

	// Both tokens must be present before the session is replaced.
	if result.AccessToken != "" && result.RefreshToken != "" {
		a.store.Set(session.Session{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			User:         result.User,
		})
	}

	// Request (not just check) device access right after login, so
	// consent is settled before the user reaches the capture screen.
	// Denial is a notice, never a login failure.
	perms := a.dev.RequestPermissions(ctx)
	if !perms.Camera {
		fmt.Fprintln(a.out, "Camera permission denied")
	}
	if !perms.Location {
		fmt.Fprintln(a.out, "Location permission denied")
	}

	fmt.Fprintln(a.out, "Welcome back!")
	return screenDashboard
}

func (a *App) dashboard(ctx context.Context) screen {
	sess := a.store.Get()
	name := ""
	if sess.User != nil {
		name = sess.User.Name
	}
	if name != "" {
		fmt.Fprintf(a.out, "== Dashboard — Welcome, %s ==\n", name)
	} else {
		fmt.Fprintln(a.out, "== Dashboard — Welcome ==")
	}

	recs, errMsg := a.agg.Fetch(ctx)
	day := time.Now().UTC().Format("2006-01-02")

	for {
		if errMsg != "" {
			fmt.Fprintln(a.out, errMsg)
		} else {
			daily := records.FilterByDay(recs, day)
			fmt.Fprintf(a.out, "-- %s --\n", day)
			if len(daily) == 0 {
				fmt.Fprintln(a.out, "No attendance for this day")
			}
			for _, r := range daily {
				a.renderRecord(r, "")
			}
		}

		switch a.prompt("[p]rev [n]ext [t]oday [a]ttendance [r]ecords [u]profile [o]logout [q]uit") {
		case "p":
			day = shiftDay(day, -1)
		case "n":
			day = shiftDay(day, 1)
		case "t":
			day = time.Now().UTC().Format("2006-01-02")
		case "a":
			return screenAttendance
		case "r":
			return screenRecords
		case "u":
			return screenProfile
		case "o":
			return a.logout()
		case "q", "":
			return screenQuit
		}
	}
}

func (a *App) profile(ctx context.Context) screen {
	fmt.Fprintln(a.out, "== Profile ==")

	user, err := a.client.Profile(ctx, a.store.Token())
	if err != nil {
		fmt.Fprintln(a.out, profileFailureMessage(err))
	} else if user != nil {
		fmt.Fprintf(a.out, "%s <%s>\n", orDash(user.FullName), user.Email)
		if user.IsVerified {
			fmt.Fprintln(a.out, "Verified")
		} else {
			fmt.Fprintln(a.out, "Pending")
		}
		if user.Role != "" {
			fmt.Fprintln(a.out, "Role:          "+user.Role)
		}
		fmt.Fprintln(a.out, "Organization:  "+orDash(user.Organization))
		fmt.Fprintln(a.out, "Phone:         "+orDash(user.PhoneNumber))
		fmt.Fprintln(a.out, "State:         "+orDash(user.State))
		fmt.Fprintln(a.out, "Base Location: "+orDash(user.BaseLocation))
	}

	for {
		switch a.prompt("[h]ome [o]logout [q]uit") {
		case "h":
			return screenDashboard
		case "o":
			return a.logout()
		case "q", "":
			return screenQuit
		}
	}
}

func (a *App) attendance(ctx context.Context) screen {
	fmt.Fprintln(a.out, "== Mark Attendance ==")

	pipe := capture.New(a.client, a.store, a.dev)
	perms := pipe.Enter(ctx)
	if !perms.Camera {
		fmt.Fprintln(a.out, "Camera permission denied")
	}

	for {
		if c := pipe.Coordinates(); c != nil {
			fmt.Fprintf(a.out, "Coordinates: %.6f, %.6f\n", c.Latitude, c.Longitude)
		} else {
			fmt.Fprintln(a.out, "Coordinates: fetching location...")
		}
		if p := pipe.Photo(); p != nil {
			fmt.Fprintln(a.out, "Selfie: "+p.Path)
		}
		if pipe.Purpose() != "" {
			fmt.Fprintln(a.out, "Purpose: "+pipe.Purpose())
		}

		switch a.prompt("[c]apture [k]retake [p]urpose [d]etails [s]ubmit [h]ome [q]uit") {
		case "c":
			if err := pipe.Capture(ctx); err != nil {
				a.notify(err)
			}
		case "k":
			pipe.Retake()
		case "p":
			for i, opt := range capture.Purposes {
				fmt.Fprintf(a.out, "  %d) %s\n", i+1, opt)
			}
			choice := a.prompt("Select purpose")
			idx := 0
			if _, err := fmt.Sscanf(choice, "%d", &idx); err == nil && idx >= 1 && idx <= len(capture.Purposes) {
				_ = pipe.SetPurpose(capture.Purposes[idx-1])
			}
		case "d":
			if err := pipe.SetDetails(a.prompt("Details (optional, max 50 chars)")); err != nil {
				a.notify(err)
			}
		case "s":
			if err := pipe.Submit(ctx); err != nil {
				a.notify(err)
				continue
			}
			fmt.Fprintln(a.out, "Attendance marked")
			return screenRecords
		case "h":
			return screenDashboard
		case "q", "":
			return screenQuit
		}
	}
}

func (a *App) records(ctx context.Context) screen {
	fmt.Fprintln(a.out, "== Attendance Records ==")

	view := a.agg.Load(ctx)
	if view.Err != "" {
		fmt.Fprintln(a.out, view.Err)
	}
	for _, r := range view.Records {
		distance := ""
		if ann, ok := view.Distances[r.ID]; ok {
			distance = records.RenderDistance(ann)
		}
		a.renderRecord(r, distance)
	}

	for {
		switch a.prompt("[h]ome [u]profile [q]uit") {
		case "h":
			return screenDashboard
		case "u":
			return screenProfile
		case "q", "":
			return screenQuit
		}
	}
}

func (a *App) logout() screen {
	a.store.Clear()
	return screenLogin
}

// renderRecord prints one attendance card; the distance row appears
// only when an annotation exists for the record.
func (a *App) renderRecord(r api.AttendanceRecord, distance string) {
	fmt.Fprintln(a.out, "----")
	fmt.Fprintln(a.out, "Location:  "+r.LocationName)
	fmt.Fprintf(a.out, "Lat, Lng:  %v, %v\n", r.Lat, r.Lng)
	if distance != "" {
		fmt.Fprintln(a.out, "Distance:  "+distance)
	}
	purpose := r.Purpose
	if r.SubPurpose != "" && r.SubPurpose != "N/A" {
		purpose += " • " + r.SubPurpose
	}
	fmt.Fprintln(a.out, "Purpose:   "+purpose)
	fmt.Fprintln(a.out, "Timestamp: "+r.Timestamp)
}

func (a *App) prompt(label string) string {
	fmt.Fprintf(a.out, "%s> ", label)
	if !a.in.Scan() {
		a.eof = true
		return ""
	}
	return strings.TrimSpace(a.in.Text())
}

// notify prints a transient user-facing message for a failed action.
func (a *App) notify(err error) {
	var userErr *capture.UserError
	if errors.As(err, &userErr) {
		fmt.Fprintf(a.out, "%s: %s\n", userErr.Title, userErr.Detail)
		return
	}
	var srvErr *api.ServerError
	if errors.As(err, &srvErr) {
		msg := srvErr.Message
		if msg == "" {
			msg = "Attendance failed"
		}
		fmt.Fprintln(a.out, "Error: "+msg)
		return
	}
	fmt.Fprintln(a.out, "Network error: Please try again.")
}

func loginFailureMessage(err error) string {
	var srvErr *api.ServerError
	if errors.As(err, &srvErr) {
		if srvErr.Message != "" {
			return srvErr.Message
		}
		return "Login failed. Please try again."
	}
	return "Network error. Please check your connection or server."
}

func profileFailureMessage(err error) string {
	var srvErr *api.ServerError
	if errors.As(err, &srvErr) {
		if srvErr.Message != "" {
			return srvErr.Message
		}
		return "Failed to load profile"
	}
	return "Network error. Please try again."
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// shiftDay moves a YYYY-MM-DD key by delta days.
func shiftDay(day string, delta int) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, delta).Format("2006-01-02")
}
