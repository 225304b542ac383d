package geo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/timeclock/pkg/types"
	"gopkg.in/yaml.v3"
)

var (
	// ErrPermissionDenied means the device refused to share its position
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrUnsupported means no positioning source is available on this device
	ErrUnsupported = errors.New("location is not supported on this device")

	// ErrPositionUnavailable means a source exists but produced no usable fix
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Reason returns a short label for a location error, used in metrics and the journal
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrPositionUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}

// Locator produces a single on-demand location fix.
// Implementations must query the source on every call and never cache.
type Locator interface {
	Locate(ctx context.Context) (types.LocationFix, error)
}

// StaticLocator reports a fixed position, e.g. one given on the command line
type StaticLocator struct {
	Point types.Point
	now   func() time.Time
}

// NewStaticLocator creates a locator for a fixed coordinate
func NewStaticLocator(lat, lng float64) *StaticLocator {
	return &StaticLocator{
		Point: types.Point{Latitude: lat, Longitude: lng},
		now:   time.Now,
	}
}

// Locate returns the configured position
func (l *StaticLocator) Locate(ctx context.Context) (types.LocationFix, error) {
	if err := ctx.Err(); err != nil {
		return types.LocationFix{}, err
	}
	if !ValidPoint(l.Point) {
		return types.LocationFix{}, fmt.Errorf("%w: invalid coordinate %v,%v", ErrPositionUnavailable, l.Point.Latitude, l.Point.Longitude)
	}
	return types.LocationFix{Point: l.Point, TakenAt: l.now()}, nil
}

// UnsupportedLocator is used when no position source was configured
type UnsupportedLocator struct{}

// Locate always fails with ErrUnsupported
func (UnsupportedLocator) Locate(ctx context.Context) (types.LocationFix, error) {
	return types.LocationFix{}, ErrUnsupported
}

// fixFile is the on-disk format written by an external GPS helper
type fixFile struct {
	Latitude  *float64  `yaml:"latitude"`
	Longitude *float64  `yaml:"longitude"`
	TakenAt   time.Time `yaml:"taken_at"`
	Error     string    `yaml:"error"`
}

// FileLocator reads the latest fix from a YAML or JSON file on every call.
// Fixes older than MaxAge are rejected as stale.
type FileLocator struct {
	Path   string
	MaxAge time.Duration
	now    func() time.Time
}

// NewFileLocator creates a locator backed by a fix file
func NewFileLocator(path string, maxAge time.Duration) *FileLocator {
	return &FileLocator{
		Path:   path,
		MaxAge: maxAge,
		now:    time.Now,
	}
}

// Locate reads and validates the fix file
func (l *FileLocator) Locate(ctx context.Context) (types.LocationFix, error) {
	if err := ctx.Err(); err != nil {
		return types.LocationFix{}, err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.LocationFix{}, fmt.Errorf("%w: fix file %s not found", ErrUnsupported, l.Path)
		}
		if errors.Is(err, os.ErrPermission) {
			return types.LocationFix{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return types.LocationFix{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	var f fixFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return types.LocationFix{}, fmt.Errorf("%w: failed to parse fix file: %v", ErrPositionUnavailable, err)
	}

	switch f.Error {
	case "":
	case "permission_denied":
		return types.LocationFix{}, ErrPermissionDenied
	case "unsupported":
		return types.LocationFix{}, ErrUnsupported
	default:
		return types.LocationFix{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, f.Error)
	}

	if f.Latitude == nil || f.Longitude == nil {
		return types.LocationFix{}, fmt.Errorf("%w: fix file has no coordinates", ErrPositionUnavailable)
	}

	fix := types.LocationFix{
		Point:   types.Point{Latitude: *f.Latitude, Longitude: *f.Longitude},
		TakenAt: f.TakenAt,
	}
	if !ValidPoint(fix.Point) {
		return types.LocationFix{}, fmt.Errorf("%w: invalid coordinate %v,%v", ErrPositionUnavailable, fix.Latitude, fix.Longitude)
	}

	if fix.TakenAt.IsZero() {
		fix.TakenAt = l.now()
	}
	if l.MaxAge > 0 && l.now().Sub(fix.TakenAt) > l.MaxAge {
		return types.LocationFix{}, fmt.Errorf("%w: fix is stale (taken %s)", ErrPositionUnavailable, fix.TakenAt.Format(time.RFC3339))
	}

	return fix, nil
}
