package timeclock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/selfie"
	"github.com/cuemby/timeclock/pkg/timer"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when an action is triggered while a request is in flight
	ErrBusy = errors.New("another attendance request is in progress")

	// ErrNotLoggedIn is returned when no user has been reconciled
	ErrNotLoggedIn = errors.New("no user is logged in")

	// ErrLocationNotSet is returned when the user has no assigned location
	ErrLocationNotSet = errors.New("location not set yet, ask your admin to set it up")

	// ErrOutsideFence is returned when the device is too far from the assigned location
	ErrOutsideFence = errors.New("you must clock in at your assigned location")

	// ErrAlreadyOpen is returned by ClockIn when a session is already running
	ErrAlreadyOpen = errors.New("already clocked in")

	// ErrNotOpen is returned by ClockOut when no session is running
	ErrNotOpen = errors.New("not clocked in")

	// ErrNoCapture is returned when a selfie is submitted outside a clock-in attempt
	ErrNoCapture = errors.New("no clock-in is waiting for a selfie")

	// ErrSuperseded is returned when a response arrived after the attempt was invalidated
	ErrSuperseded = errors.New("attempt superseded")
)

// API is the subset of the attendance service the controller needs
type API interface {
	GetSession(ctx context.Context, userID, sessionID string) (*types.AttendanceSession, error)
	ClockIn(ctx context.Context, selfie string) (*types.AttendanceSession, error)
	ClockOut(ctx context.Context, userID string) (*types.AttendanceSession, error)
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Journal records resolved attempts
type Journal interface {
	RecordAttempt(attempt *types.Attempt) error
}

// Config holds the controller's collaborators
type Config struct {
	API      API
	Locator  geo.Locator   // nil means no position source
	Camera   selfie.Camera // optional; without one the caller drives SubmitSelfie
	Notifier Notifier
	Journal  Journal
	Events   events.Publisher

	RadiusMeters       float64
	SelfieMaxDimension int
	Clock              timer.Clock
}

// Controller is the attendance session state machine. It reconciles the
// running state with the service and gates clock-in on a geofence check and
// a selfie. All methods are safe for concurrent use.
type Controller struct {
	api      API
	locator  geo.Locator
	camera   selfie.Camera
	notifier Notifier
	journal  Journal
	events   events.Publisher
	radius   float64
	maxDim   int
	now      timer.Clock

	timer *timer.ElapsedTimer

	mu       sync.Mutex
	state    State
	user     *types.User
	fence    types.GeoFence
	session  *types.AttendanceSession
	selfie   string // hosted selfie URL held for the next submission
	pending  *types.Attempt
	inFlight bool   // locate, upload or reconcile fetch running
	gen      uint64 // bumped whenever in-flight work must be discarded
}

// NewController creates a controller in the Idle state with no user
func NewController(cfg Config) (*Controller, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("attendance API is required")
	}
	if cfg.Locator == nil {
		cfg.Locator = geo.UnsupportedLocator{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = geo.DefaultRadiusMeters
	}
	if cfg.SelfieMaxDimension <= 0 {
		cfg.SelfieMaxDimension = selfie.DefaultMaxDimension
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Controller{
		api:      cfg.API,
		locator:  cfg.Locator,
		camera:   cfg.Camera,
		notifier: cfg.Notifier,
		journal:  cfg.Journal,
		events:   cfg.Events,
		radius:   cfg.RadiusMeters,
		maxDim:   cfg.SelfieMaxDimension,
		now:      cfg.Clock,
		timer:    timer.NewElapsedTimer(cfg.Clock),
		state:    StateIdle,
	}, nil
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Timer returns the elapsed timer for display loops
func (c *Controller) Timer() *timer.ElapsedTimer {
	return c.timer
}

// Elapsed returns the time since the open session's clock-in, or zero
func (c *Controller) Elapsed() time.Duration {
	return c.timer.Elapsed()
}

// Session returns a copy of the open session, or nil
func (c *Controller) Session() *types.AttendanceSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// User returns the reconciled user, or nil
func (c *Controller) User() *types.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Fence returns the user's fence; false when there is none
func (c *Controller) Fence() (types.GeoFence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.state == StateLocationNotSet {
		return types.GeoFence{}, false
	}
	return c.fence, true
}

// HeldSelfie returns the selfie URL waiting for the next submission
func (c *Controller) HeldSelfie() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfie
}

// SessionSnapshot reports whether a session is open and for how long
func (c *Controller) SessionSnapshot() (bool, time.Duration) {
	return c.State() == StateOpen, c.timer.Elapsed()
}

// setState must be called with c.mu held
func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s

	logger := log.WithComponent("timeclock")
	logger.Debug().
		Str("from", from.String()).
		Str("to", s.String()).
		Msg("State changed")

	c.events.Publish(&events.Event{
		Type: events.EventStateChanged,
		Metadata: map[string]string{
			"from": from.String(),
			"to":   s.String(),
		},
	})
}

// invalidate discards all in-flight work. Must be called with c.mu held.
func (c *Controller) invalidate() {
	c.gen++
	c.inFlight = false
	c.selfie = ""
	if c.pending != nil {
		c.finishAttempt(c.pending, types.OutcomeDiscarded, ErrSuperseded)
		c.pending = nil
	}
}

func (c *Controller) newAttempt(kind types.AttemptKind) *types.Attempt {
	a := &types.Attempt{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: c.now(),
	}
	if c.user != nil {
		a.UserID = c.user.ID
	}
	return a
}

// finishAttempt resolves an attempt into metrics and the journal
func (c *Controller) finishAttempt(a *types.Attempt, outcome types.AttemptOutcome, err error) {
	a.Outcome = outcome
	a.FinishedAt = c.now()
	if err != nil {
		a.Error = err.Error()
	}

	switch a.Kind {
	case types.AttemptClockIn:
		metrics.ClockInAttemptsTotal.WithLabelValues(string(outcome)).Inc()
	case types.AttemptClockOut:
		metrics.ClockOutAttemptsTotal.WithLabelValues(string(outcome)).Inc()
	}

	logger := log.WithAttemptID(a.ID)
	logger.Info().
		Str("kind", string(a.Kind)).
		Str("outcome", string(outcome)).
		Str("user_id", a.UserID).
		Str("session_id", a.SessionID).
		Dur("duration", a.FinishedAt.Sub(a.StartedAt)).
		Msg("Attempt finished")

	if c.journal == nil {
		return
	}
	if err := c.journal.RecordAttempt(a); err != nil {
		logger.Warn().Err(err).Msg("Failed to record attempt")
	}
}
