/*
Package timeclock implements the attendance session state machine: it reconciles
the local running state with the attendance service and gates clock-in on a
geofence check and a selfie.

# Architecture

	┌──────────────────────── Controller ─────────────────────────┐
	│                                                               │
	│  user.changed ──► Reconcile ──► GET session ──► Idle | Open   │
	│                                                               │
	│  ClockIn ──► Locate ──► fence check ──► capture ──► Submit    │
	│                 │            │             │           │      │
	│                 ▼            ▼             ▼           ▼      │
	│               warn         warn        cancel     Open | Idle │
	│                                                               │
	│  ClockOut ──► ClosingOut ──► Idle (timer reset) | Open        │
	└───────────────────────────────────────────────────────────────┘

# States

	Idle              no open session, clock-in offered
	LocationNotSet    no assigned location, display only
	AwaitingCapture   fence passed, waiting for a selfie
	Submitting        POST /attendance/clock-in in flight
	Open              session confirmed, timer running
	ClosingOut        POST /attendance/clock-out in flight

Triggering an action while Submitting, ClosingOut or AwaitingCapture returns
ErrBusy without sending anything, so repeated triggers never create a second
session. ClockIn on Open returns ErrAlreadyOpen and ClockOut on anything but
Open returns ErrNotOpen.

# Authority

The elapsed timer is anchored to the service's clockIn instant, both when
Reconcile finds an open session and when a clock-in succeeds. Reconcile only
enters Open on a positively confirmed open session; network errors, 404s and
invalid payloads leave the controller Idle with an error notice.

# Stale responses

The mutex is released across every I/O call. Each attempt captures a
generation number, and Reconcile, CancelCapture and every new attempt bump it.
A response that comes back under an older generation is discarded and its
attempt is journaled as "discarded", so a slow clock-in response can never
reopen a session after the user changed.

# Notices and journal

Location errors and fence rejections are warnings; failed requests are errors.
Both go to the configured Notifier and never escape as panics. Every resolved
attempt is counted in the timeclock_clock_{in,out}_attempts_total metrics and
written to the Journal when one is configured.

# Usage

	ctrl, err := timeclock.NewController(timeclock.Config{
		API:          apiClient,
		Locator:      geo.NewStaticLocator(lat, lng),
		Camera:       selfie.FileCamera{Path: "me.jpg"},
		Notifier:     timeclock.LogNotifier{},
		Journal:      store,
		RadiusMeters: 250,
	})
	if err != nil {
		return err
	}

	if err := ctrl.Reconcile(ctx, session.User()); err != nil {
		// already reported through the notifier
	}
	if err := ctrl.Toggle(ctx); err != nil {
		return err
	}
*/
package timeclock
