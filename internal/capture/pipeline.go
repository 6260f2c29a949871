// Package capture drives one attendance submission: permission check,
// camera capture, location sampling, image transcoding, payload
// assembly and the authenticated upload.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/device"
	"github.com/bluetowndev/worktrack/internal/session"
)

// Purposes is the closed set of submission purposes.
var Purposes = []string{
	"Check In",
	"Check Out",
	"Site Visit",
	"Client Meeting",
	"Office Visit",
	"New Site Survey",
	"Official Tour",
	"Others",
}

// maxDetailsLen caps the optional free-text detail.
const maxDetailsLen = 50

// UserError is a user-facing notice: a short title plus detail, shown
// as a transient message. Validation and device failures are reported
// this way and never reach the network.
type UserError struct {
	Title  string
	Detail string
}

func (e *UserError) Error() string {
	return e.Title + ": " + e.Detail
}

// Pre-submission validation failures, one distinct message per missing
// precondition.
var (
	ErrMissingPhoto    = &UserError{Title: "Missing selfie", Detail: "Please capture your selfie."}
	ErrMissingLocation = &UserError{Title: "Location required", Detail: "Enable location to continue."}
	ErrMissingPurpose  = &UserError{Title: "Select purpose", Detail: "Please choose a purpose."}

	ErrCamera         = &UserError{Title: "Camera error", Detail: "Unable to capture photo."}
	ErrUnknownPurpose = &UserError{Title: "Select purpose", Detail: "Purpose must be one of the listed options."}
	ErrDetailsTooLong = &UserError{Title: "Details too long", Detail: "Keep details within 50 characters."}
	ErrBusy           = &UserError{Title: "Please wait", Detail: "A submission is already in progress."}
)

// Pipeline holds the state of one attendance attempt. A pipeline is
// created on entering the capture screen and discarded on leaving it.
// Only one submission may be in flight at a time; Submit enforces that
// rather than relying on the caller's disabled-button state.
type Pipeline struct {
	client *api.Client
	store  *session.Store
	dev    *device.Device

	mu         sync.Mutex
	perms      device.Permissions
	photo      *device.Photo
	coords     *device.Coordinates
	purpose    string
	details    string
	submitting bool

	now func() time.Time
}

// New creates a pipeline over the given API client, session store and
// device.
func New(client *api.Client, store *session.Store, dev *device.Device) *Pipeline {
	return &Pipeline{client: client, store: store, dev: dev, now: time.Now}
}

// Enter queries (not requests) permissions and, when location is
// granted, eagerly samples one fix. A failed sample is not an error;
// coordinates simply stay unset until capture refreshes them.
func (p *Pipeline) Enter(ctx context.Context) device.Permissions {
	perms := p.dev.QueryPermissions()

	p.mu.Lock()
	p.perms = perms
	p.mu.Unlock()

	if perms.Location {
		if c, err := p.dev.Locator.Current(ctx); err == nil {
			p.mu.Lock()
			p.coords = &c
			p.mu.Unlock()
		}
	}
	return perms
}

// Capture takes a photo and, if location is granted, refreshes the
// coordinate fix. A camera failure surfaces as ErrCamera and leaves
// prior state intact.
func (p *Pipeline) Capture(ctx context.Context) error {
	p.mu.Lock()
	if !p.perms.Camera || p.dev.Camera == nil {
		p.mu.Unlock()
		return ErrCamera
	}
	p.mu.Unlock()

	photo, err := p.dev.Camera.Capture(ctx)
	if err != nil {
		return ErrCamera
	}

	p.mu.Lock()
	p.photo = &photo
	locGranted := p.perms.Location
	p.mu.Unlock()

	if locGranted {
		if c, err := p.dev.Locator.Current(ctx); err == nil {
			p.mu.Lock()
			p.coords = &c
			p.mu.Unlock()
		}
	}
	return nil
}

// Retake discards the current photo.
func (p *Pipeline) Retake() {
	p.mu.Lock()
	p.photo = nil
	p.mu.Unlock()
}

// SetPurpose selects one of the closed purpose options.
func (p *Pipeline) SetPurpose(purpose string) error {
	for _, opt := range Purposes {
		if opt == purpose {
			p.mu.Lock()
			p.purpose = purpose
			p.mu.Unlock()
			return nil
		}
	}
	return ErrUnknownPurpose
}

// SetDetails sets the optional free-text detail, capped at 50
// characters.
func (p *Pipeline) SetDetails(details string) error {
	if len([]rune(details)) > maxDetailsLen {
		return ErrDetailsTooLong
	}
	p.mu.Lock()
	p.details = details
	p.mu.Unlock()
	return nil
}

// Photo returns the current photo, nil before capture.
func (p *Pipeline) Photo() *device.Photo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.photo
}

// Coordinates returns the latest fix, nil when none succeeded.
func (p *Pipeline) Coordinates() *device.Coordinates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coords
}

// Purpose returns the selected purpose, empty when none.
func (p *Pipeline) Purpose() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.purpose
}

// Details returns the free-text detail.
func (p *Pipeline) Details() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.details
}

// Submit validates local state, transcodes the photo and uploads one
// submission. No network call happens unless photo, coordinates and
// purpose are all present. On success the photo is discarded so the
// caller can navigate to the records screen.
//
// Error kinds: *UserError for local validation or transcode failures,
// *api.ServerError for a backend-reported failure, anything else is a
// transport failure.
func (p *Pipeline) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		return ErrBusy
	}
	switch {
	case p.photo == nil:
		p.mu.Unlock()
		return ErrMissingPhoto
	case p.coords == nil:
		p.mu.Unlock()
		return ErrMissingLocation
	case p.purpose == "":
		p.mu.Unlock()
		return ErrMissingPurpose
	}
	p.submitting = true
	photo := *p.photo
	coords := *p.coords
	purpose := p.purpose
	details := p.details
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.submitting = false
		p.mu.Unlock()
	}()

	sub, err := p.buildSubmission(photo, coords, purpose, details)
	if err != nil {
		return &UserError{Title: "Image error", Detail: "Unable to prepare photo for upload."}
	}

	if err := p.client.SubmitAttendance(ctx, p.store.Token(), sub); err != nil {
		return err
	}

	p.mu.Lock()
	p.photo = nil
	p.mu.Unlock()
	return nil
}

// buildSubmission transcodes the photo and assembles the wire payload.
// The detail string is mirrored into both subPurpose and feedback;
// the backend expects the duplication.
func (p *Pipeline) buildSubmission(photo device.Photo, coords device.Coordinates, purpose, details string) (api.AttendanceSubmission, error) {
	image, err := transcodeDataURI(photo.Path)
	if err != nil {
		return api.AttendanceSubmission{}, err
	}

	loc, err := json.Marshal(coords)
	if err != nil {
		return api.AttendanceSubmission{}, fmt.Errorf("encode location: %w", err)
	}

	sub := details
	if sub == "" {
		sub = "N/A"
	}

	now := p.now().UTC()
	ts := now.Format(time.RFC3339)
	return api.AttendanceSubmission{
		Image:        image,
		Location:     string(loc),
		LocationName: "Unknown",
		Purpose:      purpose,
		SubPurpose:   sub,
		Feedback:     sub,
		Timestamp:    ts,
		Date:         now.Format("2006-01-02"),
	}, nil
}
