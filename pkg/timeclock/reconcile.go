package timeclock

import (
	"context"
	"fmt"

	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/types"
)

// Reconcile derives the local state from the service for the given user. Any
// prior timer state and in-flight attempt is discarded first. The controller
// only enters Open on a confirmed open session; every failure leaves it Idle.
func (c *Controller) Reconcile(ctx context.Context, user *types.User) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	c.mu.Lock()
	c.invalidate()
	gen := c.gen
	c.timer.Reset()
	c.session = nil

	if user == nil {
		c.user = nil
		c.fence = types.GeoFence{}
		c.setState(StateIdle)
		c.mu.Unlock()
		return c.reconciled(StateIdle)
	}

	u := *user
	c.user = &u
	logger := log.WithUserID(u.ID)

	fence, ok := geo.NewFence(&u, c.radius)
	if !ok {
		c.fence = types.GeoFence{}
		c.setState(StateLocationNotSet)
		c.mu.Unlock()
		logger.Info().Msg("No location assigned, clock-in not offered")
		return c.reconciled(StateLocationNotSet)
	}
	c.fence = fence

	ref := u.Attendance
	if ref.ID == "" {
		c.setState(StateIdle)
		c.mu.Unlock()
		return c.reconciled(StateIdle)
	}

	c.setState(StateIdle)
	c.inFlight = true
	c.mu.Unlock()

	session, err := c.api.GetSession(ctx, u.ID, ref.ID)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.inFlight = false

	if err != nil {
		c.setState(StateIdle)
		c.mu.Unlock()
		logger.Error().Err(err).Str("session_id", ref.ID).Msg("Failed to load attendance session")
		c.notifier.Error("Something went wrong while loading your attendance session.")
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load session %s: %w", ref.ID, err)
	}

	if !session.IsOpen() || session.ClockIn.IsZero() {
		c.user.Attendance = types.SessionRef{}
		c.setState(StateIdle)
		c.mu.Unlock()
		return c.reconciled(StateIdle)
	}

	c.session = session
	c.timer.Anchor(session.ClockIn)
	c.setState(StateOpen)
	c.mu.Unlock()

	sessionLogger := log.WithSessionID(session.ID)
	sessionLogger.Info().
		Str("user_id", u.ID).
		Time("clock_in", session.ClockIn).
		Msg("Resumed open session")
	return c.reconciled(StateOpen)
}

func (c *Controller) reconciled(s State) error {
	metrics.ReconciliationsTotal.WithLabelValues(s.String()).Inc()
	return nil
}

// Run reconciles on every user change published on sub until ctx is done or
// the subscription is closed
func (c *Controller) Run(ctx context.Context, sub events.Subscriber) {
	logger := log.WithComponent("timeclock")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if event.Type != events.EventUserChanged {
				continue
			}
			if err := c.Reconcile(ctx, event.User); err != nil {
				logger.Debug().Err(err).Msg("Reconciliation after user change failed")
			}
		}
	}
}
