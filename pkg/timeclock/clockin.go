package timeclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/selfie"
	"github.com/cuemby/timeclock/pkg/types"
)

// ClockIn starts a clock-in attempt from Idle. It reads a fresh location fix and
// checks it against the user's fence before anything is sent. With a held selfie
// the request is submitted right away; otherwise the controller moves to
// AwaitingCapture and, when a Camera is configured, captures one.
//
// A nil error with State() == StateAwaitingCapture means the caller must supply
// a selfie through SubmitSelfie or AttachSelfie, or call CancelCapture.
func (c *Controller) ClockIn(ctx context.Context) error {
	c.mu.Lock()
	if err := c.clockInAllowed(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.gen++
	gen := c.gen
	c.inFlight = true
	fence := c.fence
	attempt := c.newAttempt(types.AttemptClockIn)
	c.mu.Unlock()

	fix, locErr := c.locator.Locate(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.finishAttempt(attempt, types.OutcomeDiscarded, ErrSuperseded)
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.inFlight = false

	if locErr != nil {
		metrics.LocationErrorsTotal.WithLabelValues(geo.Reason(locErr)).Inc()
		metrics.UpdateComponent(metrics.ComponentLocator, false, locErr.Error())
		c.finishAttempt(attempt, types.OutcomeLocationError, locErr)
		c.mu.Unlock()
		c.notifier.Warn(locationMessage(locErr))
		return fmt.Errorf("failed to get location: %w", locErr)
	}

	metrics.UpdateComponent(metrics.ComponentLocator, true, "")

	within, distance := geo.Within(fix, fence)
	metrics.GeofenceDistanceMeters.Observe(distance)
	attempt.Fix = &fix
	attempt.DistanceMeters = distance

	if !within {
		c.finishAttempt(attempt, types.OutcomeOutsideFence, ErrOutsideFence)
		c.events.Publish(&events.Event{
			Type:    events.EventClockInRejected,
			Message: ErrOutsideFence.Error(),
			Metadata: map[string]string{
				"distance_m": fmt.Sprintf("%.0f", distance),
				"radius_m":   fmt.Sprintf("%.0f", fence.RadiusMeters),
			},
		})
		c.mu.Unlock()
		c.notifier.Warn(fmt.Sprintf("You must clock in at your assigned location (%.0f m away, limit %.0f m).",
			distance, fence.RadiusMeters))
		return fmt.Errorf("%w: %.0f m from the assigned location", ErrOutsideFence, distance)
	}

	if held := c.selfie; held != "" {
		c.setState(StateSubmitting)
		c.mu.Unlock()
		return c.submit(ctx, gen, attempt, held)
	}

	c.pending = attempt
	c.setState(StateAwaitingCapture)
	camera := c.camera
	c.mu.Unlock()

	if camera == nil {
		return nil
	}
	return c.capture(ctx, gen, camera)
}

// clockInAllowed must be called with c.mu held
func (c *Controller) clockInAllowed() error {
	if c.inFlight {
		return ErrBusy
	}
	switch c.state {
	case StateSubmitting, StateClosingOut, StateAwaitingCapture:
		return ErrBusy
	case StateOpen:
		return ErrAlreadyOpen
	case StateLocationNotSet:
		return ErrLocationNotSet
	}
	if c.user == nil {
		return ErrNotLoggedIn
	}
	return nil
}

func (c *Controller) capture(ctx context.Context, gen uint64, camera selfie.Camera) error {
	raw, err := camera.Capture(ctx)
	if err != nil {
		cancelled := errors.Is(err, selfie.ErrCaptureCancelled) || errors.Is(err, context.Canceled)
		if !cancelled {
			c.notifier.Error(fmt.Sprintf("Failed to take selfie: %v", err))
		}
		c.cancelCapture(gen, err)
		return fmt.Errorf("clock-in cancelled: %w", err)
	}
	return c.submitSelfie(ctx, gen, raw)
}

// SubmitSelfie uploads a captured image for the attempt waiting in
// AwaitingCapture and then submits the clock-in
func (c *Controller) SubmitSelfie(ctx context.Context, raw []byte) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.submitSelfie(ctx, gen, raw)
}

func (c *Controller) submitSelfie(ctx context.Context, gen uint64, raw []byte) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if c.state != StateAwaitingCapture {
		err := ErrNoCapture
		if c.state.Busy() {
			err = ErrBusy
		}
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	url, uploadErr := selfie.Upload(ctx, c.api, raw, c.maxDim)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.inFlight = false
	attempt := c.pending

	if uploadErr != nil {
		c.pending = nil
		c.selfie = ""
		c.setState(StateIdle)
		c.finishAttempt(attempt, types.OutcomeFailed, uploadErr)
		c.mu.Unlock()
		c.notifier.Error(fmt.Sprintf("Failed to upload selfie: %v", uploadErr))
		return uploadErr
	}

	c.pending = nil
	c.selfie = url
	c.setState(StateSubmitting)
	c.mu.Unlock()

	return c.submit(ctx, gen, attempt, url)
}

// AttachSelfie holds an already hosted selfie. In AwaitingCapture the waiting
// attempt is submitted with it; in Idle it is kept for the next ClockIn.
func (c *Controller) AttachSelfie(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("selfie URL is required")
	}

	c.mu.Lock()
	switch {
	case c.inFlight || c.state.Busy():
		c.mu.Unlock()
		return ErrBusy
	case c.state == StateAwaitingCapture:
		gen := c.gen
		attempt := c.pending
		c.pending = nil
		c.selfie = url
		c.setState(StateSubmitting)
		c.mu.Unlock()
		return c.submit(ctx, gen, attempt, url)
	case c.state == StateIdle:
		c.selfie = url
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrNoCapture
	}
}

// CancelCapture abandons the attempt waiting for a selfie and returns to Idle
func (c *Controller) CancelCapture() error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	if !c.cancelCapture(gen, selfie.ErrCaptureCancelled) {
		return ErrNoCapture
	}
	return nil
}

func (c *Controller) cancelCapture(gen uint64, cause error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateAwaitingCapture {
		return false
	}

	c.gen++
	c.inFlight = false
	c.selfie = ""
	if c.pending != nil {
		c.finishAttempt(c.pending, types.OutcomeCancelled, cause)
		c.pending = nil
	}
	c.setState(StateIdle)
	return true
}

// submit issues the clock-in request. The controller is in Submitting.
func (c *Controller) submit(ctx context.Context, gen uint64, attempt *types.Attempt, selfieURL string) error {
	logger := log.WithAttemptID(attempt.ID)

	session, err := c.api.ClockIn(ctx, selfieURL)
	if err == nil && session.ClockIn.IsZero() {
		// Only the ID came back; the session detail carries the authoritative instant
		detail, detailErr := c.api.GetSession(ctx, attempt.UserID, session.ID)
		if detailErr != nil {
			logger.Warn().Err(detailErr).Str("session_id", session.ID).Msg("Failed to fetch new session detail")
		} else {
			session = detail
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.finishAttempt(attempt, types.OutcomeDiscarded, ErrSuperseded)
		c.mu.Unlock()
		logger.Warn().Msg("Discarded stale clock-in response")
		return ErrSuperseded
	}

	c.selfie = ""
	if err != nil {
		c.setState(StateIdle)
		c.finishAttempt(attempt, types.OutcomeFailed, err)
		c.mu.Unlock()
		c.notifier.Error(fmt.Sprintf("Clock-in failed: %v", err))
		return fmt.Errorf("failed to clock in: %w", err)
	}

	anchor := session.ClockIn
	if anchor.IsZero() {
		anchor = c.now()
	}
	c.session = session
	c.timer.Anchor(anchor)
	if c.user != nil {
		c.user.Attendance = types.SessionRef{ID: session.ID}
	}
	attempt.SessionID = session.ID
	c.setState(StateOpen)
	c.finishAttempt(attempt, types.OutcomeSucceeded, nil)
	c.events.Publish(&events.Event{
		Type:     events.EventSessionOpened,
		Message:  "clocked in",
		Metadata: map[string]string{"session_id": session.ID},
	})
	c.mu.Unlock()

	if session.ClockIn.IsZero() {
		c.notifier.Warn("Clocked in, but the start time could not be confirmed; elapsed time is approximate.")
	}
	return nil
}

// ClockOut closes the open session. It is not geofenced. On failure the
// session stays open with the timer running and ClockOut may be retried.
func (c *Controller) ClockOut(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.inFlight || c.state.Busy() || c.state == StateAwaitingCapture:
		c.mu.Unlock()
		return ErrBusy
	case c.state != StateOpen:
		c.mu.Unlock()
		return ErrNotOpen
	}

	c.gen++
	gen := c.gen
	attempt := c.newAttempt(types.AttemptClockOut)
	if c.session != nil {
		attempt.SessionID = c.session.ID
	}
	c.setState(StateClosingOut)
	c.mu.Unlock()

	closed, err := c.api.ClockOut(ctx, attempt.UserID)

	c.mu.Lock()
	if gen != c.gen {
		c.finishAttempt(attempt, types.OutcomeDiscarded, ErrSuperseded)
		c.mu.Unlock()
		return ErrSuperseded
	}

	if err != nil {
		c.setState(StateOpen)
		c.finishAttempt(attempt, types.OutcomeFailed, err)
		c.mu.Unlock()
		c.notifier.Error(fmt.Sprintf("Clock-out failed: %v", err))
		return fmt.Errorf("failed to clock out: %w", err)
	}

	worked := c.timer.Elapsed()
	if closed != nil && closed.ClockOut != nil {
		worked = closed.Duration(c.now())
	}

	c.timer.Reset()
	c.session = nil
	if c.user != nil {
		c.user.Attendance = types.SessionRef{}
	}
	c.setState(StateIdle)
	c.finishAttempt(attempt, types.OutcomeSucceeded, nil)
	c.events.Publish(&events.Event{
		Type:    events.EventSessionClosed,
		Message: "clocked out",
		Metadata: map[string]string{
			"session_id": attempt.SessionID,
			"worked":     worked.Round(time.Second).String(),
		},
	})
	c.mu.Unlock()
	return nil
}

// Toggle clocks out when a session is open and clocks in otherwise
func (c *Controller) Toggle(ctx context.Context) error {
	if c.State() == StateOpen {
		return c.ClockOut(ctx)
	}
	return c.ClockIn(ctx)
}

func locationMessage(err error) string {
	switch {
	case errors.Is(err, geo.ErrUnsupported):
		return "Location is not supported on this device. Provide a position source to clock in."
	case errors.Is(err, geo.ErrPermissionDenied):
		return "Location permission denied. Allow location access to clock in."
	default:
		return fmt.Sprintf("Could not determine your location: %v", err)
	}
}
