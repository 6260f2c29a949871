// Package device abstracts the capture hardware the mobile app reaches
// through the OS: a camera producing JPEG frames and a location
// provider producing coordinate fixes. On a workstation the camera is
// an external capture command or a still-image path, and location is a
// command or a fixed pair from configuration. An unconfigured source
// plays the role of a denied permission.
package device

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/bluetowndev/worktrack/internal/config"
)

// Capture-time bounds, applied before the frame ever leaves the
// device layer. The upload path shrinks the image again.
const (
	captureMaxWidth = 800
	captureQuality  = 30
)

// Photo is one captured frame: a local file reference plus an inline
// base64 encoding of the bounded JPEG.
type Photo struct {
	Path   string
	Base64 string
}

// Coordinates is one location fix. JSON tags match the wire shape the
// backend expects inside a submission's location string.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Camera produces photos.
type Camera interface {
	// Available reports whether capture can be attempted at all,
	// without capturing. The analogue of a permission query.
	Available() bool
	Capture(ctx context.Context) (Photo, error)
}

// Locator produces location fixes.
type Locator interface {
	Available() bool
	Current(ctx context.Context) (Coordinates, error)
}

// Permissions is the result of querying both sources.
type Permissions struct {
	Camera   bool
	Location bool
}

// Device bundles the two sources. Either may be nil when unconfigured.
type Device struct {
	Camera  Camera
	Locator Locator
}

// FromConfig builds a device from environment configuration.
func FromConfig(cfg config.App) *Device {
	d := &Device{}
	if cfg.CameraPath != "" {
		d.Camera = &StillCamera{SourcePath: cfg.CameraPath, Command: cfg.CameraCommand}
	}
	switch {
	case cfg.LocationCommand != "":
		d.Locator = &CommandLocator{Command: cfg.LocationCommand}
	case cfg.Latitude != "" && cfg.Longitude != "":
		lat, latErr := strconv.ParseFloat(cfg.Latitude, 64)
		lng, lngErr := strconv.ParseFloat(cfg.Longitude, 64)
		if latErr == nil && lngErr == nil {
			d.Locator = &FixedLocator{Lat: lat, Lng: lng}
		}
	}
	return d
}

// QueryPermissions checks both sources without touching them.
func (d *Device) QueryPermissions() Permissions {
	return Permissions{
		Camera:   d.Camera != nil && d.Camera.Available(),
		Location: d.Locator != nil && d.Locator.Available(),
	}
}

// RequestPermissions probes both sources, the closest analogue to the
// OS permission prompt: the camera is checked for reachability and the
// locator is asked for an actual fix.
func (d *Device) RequestPermissions(ctx context.Context) Permissions {
	p := d.QueryPermissions()
	if p.Location {
		if _, err := d.Locator.Current(ctx); err != nil {
			p.Location = false
		}
	}
	return p
}

// StillCamera reads one JPEG frame from SourcePath, optionally running
// Command first to refresh it (e.g. fswebcam writing to the path).
type StillCamera struct {
	SourcePath string
	Command    string
}

// Available reports whether a frame can plausibly be produced.
func (c *StillCamera) Available() bool {
	if c.SourcePath == "" {
		return false
	}
	if c.Command != "" {
		return true
	}
	_, err := os.Stat(c.SourcePath)
	return err == nil
}

// Capture refreshes the frame if a command is configured, then decodes
// it, bounds it to captureMaxWidth, and re-encodes a reduced-quality
// JPEG with an inline base64 copy. The bounded copy is written next to
// the temp dir so a retake never clobbers a frame already staged for
// submission.
func (c *StillCamera) Capture(ctx context.Context) (Photo, error) {
	if c.Command != "" {
		cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
		if out, err := cmd.CombinedOutput(); err != nil {
			return Photo{}, fmt.Errorf("camera command: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}

	img, err := imaging.Open(c.SourcePath)
	if err != nil {
		return Photo{}, fmt.Errorf("read frame: %w", err)
	}
	if img.Bounds().Dx() > captureMaxWidth {
		img = imaging.Resize(img, captureMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(captureQuality)); err != nil {
		return Photo{}, fmt.Errorf("encode frame: %w", err)
	}

	path := filepath.Join(os.TempDir(), "worktrack-"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return Photo{}, fmt.Errorf("stage frame: %w", err)
	}

	return Photo{
		Path:   path,
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// FixedLocator returns a constant coordinate pair from configuration.
type FixedLocator struct {
	Lat float64
	Lng float64
}

func (l *FixedLocator) Available() bool { return true }

func (l *FixedLocator) Current(ctx context.Context) (Coordinates, error) {
	return Coordinates{Latitude: l.Lat, Longitude: l.Lng}, nil
}

// CommandLocator runs a command expected to print "lat,lng" on stdout.
type CommandLocator struct {
	Command string
}

func (l *CommandLocator) Available() bool { return l.Command != "" }

func (l *CommandLocator) Current(ctx context.Context) (Coordinates, error) {
	out, err := exec.CommandContext(ctx, "sh", "-c", l.Command).Output()
	if err != nil {
		return Coordinates{}, fmt.Errorf("location command: %w", err)
	}
	return ParseCoordinates(strings.TrimSpace(string(out)))
}

// ParseCoordinates parses a "lat,lng" pair.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("malformed coordinates %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("longitude: %w", err)
	}
	return Coordinates{Latitude: lat, Longitude: lng}, nil
}
