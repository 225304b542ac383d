package timeclock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/selfie"
	"github.com/cuemby/timeclock/pkg/storage"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	office  = types.Point{Latitude: 23.8103, Longitude: 90.4125}
	nearby  = types.Point{Latitude: 23.8110, Longitude: 90.4130} // ~90 m
	faraway = types.Point{Latitude: 23.7500, Longitude: 90.3900} // ~7 km
	t0      = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeAPI struct {
	clock *fakeClock

	mu       sync.Mutex
	sessions map[string]*types.AttendanceSession
	nextID   int

	getErr, clockInErr, clockOutErr, uploadErr error
	idOnly                                     bool
	clockInGate                                chan struct{}
	clockInEntered                             chan struct{}
	clockOutGate                               chan struct{}
	clockOutEntered                            chan struct{}

	getCalls, clockInCalls, clockOutCalls, uploadCalls atomic.Int32
}

func newFakeAPI(clock *fakeClock) *fakeAPI {
	return &fakeAPI{clock: clock, sessions: make(map[string]*types.AttendanceSession)}
}

func (f *fakeAPI) addSession(s *types.AttendanceSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *fakeAPI) GetSession(ctx context.Context, userID, sessionID string) (*types.AttendanceSession, error) {
	f.getCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, errors.New("attendance API returned 404: not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAPI) ClockIn(ctx context.Context, selfieURL string) (*types.AttendanceSession, error) {
	f.clockInCalls.Add(1)
	f.mu.Lock()
	gate, entered := f.clockInGate, f.clockInEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clockInErr != nil {
		return nil, f.clockInErr
	}
	f.nextID++
	s := &types.AttendanceSession{
		ID:      fmt.Sprintf("s%d", f.nextID),
		UserID:  "u1",
		ClockIn: f.clock.Now(),
		Selfie:  selfieURL,
	}
	f.sessions[s.ID] = s
	if f.idOnly {
		return &types.AttendanceSession{ID: s.ID}, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAPI) ClockOut(ctx context.Context, userID string) (*types.AttendanceSession, error) {
	f.clockOutCalls.Add(1)
	f.mu.Lock()
	gate, entered := f.clockOutGate, f.clockOutEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clockOutErr != nil {
		return nil, f.clockOutErr
	}
	for _, s := range f.sessions {
		if s.UserID == userID && s.ClockOut == nil {
			out := f.clock.Now()
			s.ClockOut = &out
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAPI) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	f.uploadCalls.Add(1)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://img.test/" + filename, nil
}

type noticeRecorder struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (r *noticeRecorder) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *noticeRecorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *noticeRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns), len(r.errors)
}

type harness struct {
	ctrl    *Controller
	api     *fakeAPI
	clock   *fakeClock
	notices *noticeRecorder
	store   *storage.BoltStore
}

type harnessOption func(*Config)

func withLocator(l geo.Locator) harnessOption {
	return func(c *Config) { c.Locator = l }
}

func withCamera(cam selfie.Camera) harnessOption {
	return func(c *Config) { c.Camera = cam }
}

func withRadius(r float64) harnessOption {
	return func(c *Config) { c.RadiusMeters = r }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	clock := &fakeClock{t: t0}
	api := newFakeAPI(clock)
	notices := &noticeRecorder{}

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{
		API:      api,
		Locator:  geo.NewStaticLocator(nearby.Latitude, nearby.Longitude),
		Notifier: notices,
		Journal:  store,
		Clock:    clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctrl, err := NewController(cfg)
	require.NoError(t, err)

	return &harness{ctrl: ctrl, api: api, clock: clock, notices: notices, store: store}
}

func testUser(sessionID string) *types.User {
	return &types.User{
		ID:       "u1",
		Username: "rahim",
		Role:     types.RoleUser,
		Location: &types.AssignedLocation{
			Label:       "Head office",
			Coordinates: []float64{office.Latitude, office.Longitude},
		},
		Attendance: types.SessionRef{ID: sessionID},
	}
}

func pngSelfie(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32))))
	return buf.Bytes()
}

func TestNewControllerRequiresAPI(t *testing.T) {
	_, err := NewController(Config{})
	assert.Error(t, err)
}

func TestReconcileWithoutLocation(t *testing.T) {
	h := newHarness(t)
	user := testUser("s9")
	user.Location = nil

	require.NoError(t, h.ctrl.Reconcile(context.Background(), user))

	assert.Equal(t, StateLocationNotSet, h.ctrl.State())
	assert.Zero(t, h.api.getCalls.Load(), "no session fetch without a location")
	_, ok := h.ctrl.Fence()
	assert.False(t, ok)

	err := h.ctrl.ClockIn(context.Background())
	assert.ErrorIs(t, err, ErrLocationNotSet)
	assert.Zero(t, h.api.clockInCalls.Load())
}

func TestReconcileWithoutSession(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.False(t, h.ctrl.Timer().Running())
	assert.Zero(t, h.api.getCalls.Load())
}

func TestReconcileOpenSessionAnchorsTimer(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{
		ID:      "s1",
		UserID:  "u1",
		ClockIn: t0.Add(-3661 * time.Second),
	})

	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))

	assert.Equal(t, StateOpen, h.ctrl.State())
	assert.Equal(t, "1:01:01", h.ctrl.Timer().String())

	// Derived from the anchor, not counted
	h.clock.Advance(59 * time.Second)
	assert.Equal(t, "1:02:00", h.ctrl.Timer().String())

	open, elapsed := h.ctrl.SessionSnapshot()
	assert.True(t, open)
	assert.Equal(t, 3720*time.Second, elapsed)
}

func TestReconcileClosedSession(t *testing.T) {
	h := newHarness(t)
	out := t0.Add(-time.Hour)
	h.api.addSession(&types.AttendanceSession{
		ID:       "s1",
		UserID:   "u1",
		ClockIn:  t0.Add(-9 * time.Hour),
		ClockOut: &out,
	})

	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Zero(t, h.ctrl.Elapsed())
	assert.True(t, h.ctrl.User().Attendance.IsZero())
}

func TestReconcileFailureFallsBackToIdle(t *testing.T) {
	h := newHarness(t)
	h.api.getErr = errors.New("connection refused")

	err := h.ctrl.Reconcile(context.Background(), testUser("s1"))
	require.Error(t, err)

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.False(t, h.ctrl.Timer().Running())
	_, errs := h.notices.counts()
	assert.Equal(t, 1, errs)
}

func TestReconcileLocationWithoutCoordinates(t *testing.T) {
	for name, loc := range map[string]*types.AssignedLocation{
		"empty coordinates":   {Coordinates: []float64{}},
		"missing coordinates": {Label: "Point"},
		"impossible latitude": {Coordinates: []float64{120, 90.4125}},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			user := testUser("s1")
			user.Location = loc

			require.NoError(t, h.ctrl.Reconcile(context.Background(), user))
			assert.Equal(t, StateLocationNotSet, h.ctrl.State())
			assert.Zero(t, h.api.getCalls.Load())
			assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrLocationNotSet)
		})
	}
}

func TestReconcileNilUser(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0})
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))
	require.Equal(t, StateOpen, h.ctrl.State())

	require.NoError(t, h.ctrl.Reconcile(context.Background(), nil))

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Nil(t, h.ctrl.User())
	assert.False(t, h.ctrl.Timer().Running())
	assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrNotLoggedIn)
}

func TestClockInOutsideFenceSendsNothing(t *testing.T) {
	h := newHarness(t, withLocator(geo.NewStaticLocator(faraway.Latitude, faraway.Longitude)))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	// Even with a selfie already held
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	err := h.ctrl.ClockIn(context.Background())
	assert.ErrorIs(t, err, ErrOutsideFence)

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Zero(t, h.api.clockInCalls.Load())
	assert.Zero(t, h.api.uploadCalls.Load())
	warns, _ := h.notices.counts()
	assert.Equal(t, 1, warns)

	attempts, err := h.store.ListAttempts("u1", 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, types.OutcomeOutsideFence, attempts[0].Outcome)
	assert.Greater(t, attempts[0].DistanceMeters, 5000.0)
}

func TestClockInFenceBoundaryIsInclusive(t *testing.T) {
	exact := geo.Distance(nearby, office)

	h := newHarness(t, withRadius(exact))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))
	require.NoError(t, h.ctrl.ClockIn(context.Background()))
	assert.Equal(t, StateOpen, h.ctrl.State())

	h = newHarness(t, withRadius(exact-0.01))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))
	assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrOutsideFence)
	assert.Zero(t, h.api.clockInCalls.Load())
}

func TestClockInLocationError(t *testing.T) {
	h := newHarness(t, withLocator(geo.UnsupportedLocator{}))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	err := h.ctrl.ClockIn(context.Background())
	assert.ErrorIs(t, err, geo.ErrUnsupported)

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Zero(t, h.api.clockInCalls.Load())
	warns, _ := h.notices.counts()
	assert.Equal(t, 1, warns)
}

func TestClockInWithCameraAnchorsToServerTime(t *testing.T) {
	raw := pngSelfie(t)
	h := newHarness(t, withCamera(selfie.CameraFunc(func(ctx context.Context) ([]byte, error) {
		return raw, nil
	})))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	require.NoError(t, h.ctrl.ClockIn(context.Background()))

	assert.Equal(t, StateOpen, h.ctrl.State())
	assert.Equal(t, int32(1), h.api.uploadCalls.Load())
	assert.Equal(t, int32(1), h.api.clockInCalls.Load())
	assert.Empty(t, h.ctrl.HeldSelfie())

	session := h.ctrl.Session()
	require.NotNil(t, session)
	assert.Equal(t, "https://img.test/selfie.jpg", session.Selfie)
	assert.Equal(t, session.ID, h.ctrl.User().Attendance.ID)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, "00:00:05", h.ctrl.Timer().String())
}

func TestClockInAwaitsCaptureWithoutCamera(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	require.NoError(t, h.ctrl.ClockIn(context.Background()))
	assert.Equal(t, StateAwaitingCapture, h.ctrl.State())
	assert.Zero(t, h.api.clockInCalls.Load())

	// Re-trigger while waiting for the selfie
	assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrBusy)

	require.NoError(t, h.ctrl.SubmitSelfie(context.Background(), pngSelfie(t)))
	assert.Equal(t, StateOpen, h.ctrl.State())
	assert.Equal(t, int32(1), h.api.clockInCalls.Load())
}

func TestCancelCapture(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.ClockIn(context.Background()))

	require.NoError(t, h.ctrl.CancelCapture())
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.CancelCapture(), ErrNoCapture)
	assert.ErrorIs(t, h.ctrl.SubmitSelfie(context.Background(), pngSelfie(t)), ErrNoCapture)
	assert.Zero(t, h.api.clockInCalls.Load())

	attempts, err := h.store.ListAttempts("u1", 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, types.OutcomeCancelled, attempts[0].Outcome)
}

func TestCameraCancellationReturnsToIdle(t *testing.T) {
	h := newHarness(t, withCamera(selfie.FileCamera{}))
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))

	err := h.ctrl.ClockIn(context.Background())
	assert.ErrorIs(t, err, selfie.ErrCaptureCancelled)
	assert.Equal(t, StateIdle, h.ctrl.State())
	_, errs := h.notices.counts()
	assert.Zero(t, errs, "closing the capture step is not an error")
}

func TestAttachSelfieSubmitsWaitingAttempt(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.ClockIn(context.Background()))

	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/hosted.jpg"))

	assert.Equal(t, StateOpen, h.ctrl.State())
	assert.Zero(t, h.api.uploadCalls.Load())
	assert.Equal(t, "https://img.test/hosted.jpg", h.ctrl.Session().Selfie)
}

func TestDoubleClockInIssuesOneRequest(t *testing.T) {
	h := newHarness(t)
	h.api.clockInGate = make(chan struct{})
	h.api.clockInEntered = make(chan struct{}, 1)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockIn(context.Background()) }()

	<-h.api.clockInEntered
	assert.Equal(t, StateSubmitting, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrBusy)
	assert.ErrorIs(t, h.ctrl.Toggle(context.Background()), ErrBusy)
	assert.ErrorIs(t, h.ctrl.ClockOut(context.Background()), ErrBusy)

	close(h.api.clockInGate)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), h.api.clockInCalls.Load())
	assert.Equal(t, StateOpen, h.ctrl.State())
}

func TestClockInFailureLeavesIdle(t *testing.T) {
	h := newHarness(t)
	h.api.clockInErr = errors.New("network is unreachable")
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	err := h.ctrl.ClockIn(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Nil(t, h.ctrl.Session())
	assert.Empty(t, h.ctrl.HeldSelfie(), "captured selfie is discarded")
	assert.False(t, h.ctrl.Timer().Running())
	assert.True(t, h.ctrl.User().Attendance.IsZero())
	_, errs := h.notices.counts()
	assert.Equal(t, 1, errs)
}

func TestClockInUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.api.uploadErr = errors.New("413 too large")
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.ClockIn(context.Background()))

	require.Error(t, h.ctrl.SubmitSelfie(context.Background(), pngSelfie(t)))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Zero(t, h.api.clockInCalls.Load())
}

func TestClockInFetchesDetailForIDOnlyResponse(t *testing.T) {
	h := newHarness(t)
	h.api.idOnly = true
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	require.NoError(t, h.ctrl.ClockIn(context.Background()))

	assert.Equal(t, int32(1), h.api.getCalls.Load())
	require.NotNil(t, h.ctrl.Session())
	assert.Equal(t, t0, h.ctrl.Session().ClockIn)
	anchor, running := h.ctrl.Timer().AnchoredAt()
	assert.True(t, running)
	assert.Equal(t, t0, anchor)
}

func TestClockOutThenReconcile(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0.Add(-2 * time.Hour)})
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))
	require.Equal(t, StateOpen, h.ctrl.State())

	require.NoError(t, h.ctrl.ClockOut(context.Background()))

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.False(t, h.ctrl.Timer().Running())
	assert.Equal(t, "00:00:00", h.ctrl.Timer().String())

	closed, err := h.api.GetSession(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	assert.Equal(t, t0, *closed.ClockOut)

	// The refreshed profile no longer references an open session
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	assert.Equal(t, StateIdle, h.ctrl.State())

	assert.ErrorIs(t, h.ctrl.ClockOut(context.Background()), ErrNotOpen)
}

func TestClockOutFailureKeepsSessionOpen(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0.Add(-time.Minute)})
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))
	h.api.clockOutErr = errors.New("502 bad gateway")

	require.Error(t, h.ctrl.ClockOut(context.Background()))

	assert.Equal(t, StateOpen, h.ctrl.State())
	assert.True(t, h.ctrl.Timer().Running())
	assert.Equal(t, "00:01:00", h.ctrl.Timer().String())

	// Retryable
	h.api.clockOutErr = nil
	require.NoError(t, h.ctrl.ClockOut(context.Background()))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, int32(2), h.api.clockOutCalls.Load())
}

func TestDoubleClockOutIssuesOneRequest(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0.Add(-time.Hour)})
	h.api.clockOutGate = make(chan struct{})
	h.api.clockOutEntered = make(chan struct{}, 1)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockOut(context.Background()) }()

	<-h.api.clockOutEntered
	assert.Equal(t, StateClosingOut, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.ClockOut(context.Background()), ErrBusy)
	assert.ErrorIs(t, h.ctrl.ClockIn(context.Background()), ErrBusy)
	assert.ErrorIs(t, h.ctrl.Toggle(context.Background()), ErrBusy)

	close(h.api.clockOutGate)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), h.api.clockOutCalls.Load())
	assert.Zero(t, h.api.clockInCalls.Load())
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestStaleClockOutResponseIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0.Add(-30 * time.Minute)})
	h.api.clockOutGate = make(chan struct{})
	h.api.clockOutEntered = make(chan struct{}, 1)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockOut(context.Background()) }()
	<-h.api.clockOutEntered

	// The session is re-read while the clock-out is in flight
	h.clock.Advance(5 * time.Second)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("s1")))
	require.Equal(t, StateOpen, h.ctrl.State())
	close(h.api.clockOutGate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateOpen, h.ctrl.State())
	anchor, running := h.ctrl.Timer().AnchoredAt()
	assert.True(t, running)
	assert.Equal(t, t0.Add(-30*time.Minute), anchor)
	assert.Equal(t, "00:30:05", h.ctrl.Timer().String())
	require.NotNil(t, h.ctrl.Session())
	assert.Equal(t, "s1", h.ctrl.Session().ID)
}

func TestToggle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	require.NoError(t, h.ctrl.Toggle(context.Background()))
	assert.Equal(t, StateOpen, h.ctrl.State())

	require.NoError(t, h.ctrl.Toggle(context.Background()))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, int32(1), h.api.clockOutCalls.Load())
}

func TestStaleClockInResponseIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.api.clockInGate = make(chan struct{})
	h.api.clockInEntered = make(chan struct{}, 1)
	require.NoError(t, h.ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, h.ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))

	done := make(chan error, 1)
	go func() { done <- h.ctrl.ClockIn(context.Background()) }()
	<-h.api.clockInEntered

	// A user change lands while the request is in flight
	require.NoError(t, h.ctrl.Reconcile(context.Background(), nil))
	close(h.api.clockInGate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.False(t, h.ctrl.Timer().Running())
	assert.Nil(t, h.ctrl.Session())
}

func TestRunReconcilesOnUserChange(t *testing.T) {
	h := newHarness(t)
	h.api.addSession(&types.AttendanceSession{ID: "s1", UserID: "u1", ClockIn: t0.Add(-5 * time.Second)})

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.ctrl.Run(ctx, sub)

	broker.Publish(&events.Event{Type: events.EventUserChanged, User: testUser("s1")})
	require.Eventually(t, func() bool {
		return h.ctrl.State() == StateOpen
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "00:00:05", h.ctrl.Timer().String())

	broker.Publish(&events.Event{Type: events.EventUserChanged})
	require.Eventually(t, func() bool {
		return h.ctrl.User() == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestStateEventsArePublished(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	clock := &fakeClock{t: t0}
	api := newFakeAPI(clock)
	ctrl, err := NewController(Config{
		API:      api,
		Locator:  geo.NewStaticLocator(office.Latitude, office.Longitude),
		Notifier: &noticeRecorder{},
		Events:   broker,
		Clock:    clock.Now,
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.Reconcile(context.Background(), testUser("")))
	require.NoError(t, ctrl.AttachSelfie(context.Background(), "https://img.test/held.jpg"))
	require.NoError(t, ctrl.ClockIn(context.Background()))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == events.EventSessionOpened {
				assert.Equal(t, "s1", ev.Metadata["session_id"])
				return
			}
		case <-deadline:
			t.Fatal("session.opened was not published")
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_capture", StateAwaitingCapture.String())
	assert.Equal(t, "location_not_set", StateLocationNotSet.String())
	assert.True(t, StateClosingOut.Busy())
	assert.False(t, StateOpen.Busy())
}
