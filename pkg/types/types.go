package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Role defines what a user may do against the attendance service
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the authenticated profile returned by GET /auth/me and GET /auth/users
type User struct {
	ID         string            `json:"_id" validate:"required"`
	Username   string            `json:"username"`
	Email      string            `json:"email" validate:"omitempty,email"`
	Role       Role              `json:"role" validate:"omitempty,oneof=admin user"`
	Location   *AssignedLocation `json:"location,omitempty" validate:"omitempty"`
	Attendance SessionRef        `json:"attendance,omitempty"`
}

// IsAdmin reports whether the user carries the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasLocation reports whether an administrator has assigned a usable clock-in
// location. A location object without a valid coordinate pair counts as not set.
func (u *User) HasLocation() bool {
	if u == nil || u.Location == nil || len(u.Location.Coordinates) != 2 {
		return false
	}
	return u.Location.Point().Valid()
}

// AssignedLocation is the permitted clock-in point set by an administrator
type AssignedLocation struct {
	Label       string    `json:"label,omitempty"`
	Coordinates []float64 `json:"coordinates"`
}

// Point returns the location as a coordinate pair
func (l *AssignedLocation) Point() Point {
	if l == nil || len(l.Coordinates) != 2 {
		return Point{}
	}
	return Point{Latitude: l.Coordinates[0], Longitude: l.Coordinates[1]}
}

// SessionRef references a user's currently open attendance session.
// /auth/me sends a bare ID while /auth/users populates the full session.
type SessionRef struct {
	ID      string
	Session *AttendanceSession
}

// IsZero reports whether the reference is empty
func (r SessionRef) IsZero() bool {
	return r.ID == "" && r.Session == nil
}

// UnmarshalJSON accepts either a session ID string or a session object
func (r *SessionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = SessionRef{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = SessionRef{ID: id}
		return nil
	}

	var session AttendanceSession
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("invalid attendance reference: %w", err)
	}
	*r = SessionRef{ID: session.ID, Session: &session}
	return nil
}

// MarshalJSON writes the reference back as an ID
func (r SessionRef) MarshalJSON() ([]byte, error) {
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// AttendanceSession is one clock-in/clock-out pair recorded by the backend
type AttendanceSession struct {
	ID       string     `json:"_id" validate:"required"`
	UserID   string     `json:"user,omitempty"`
	ClockIn  time.Time  `json:"clockIn" validate:"required"`
	ClockOut *time.Time `json:"clockOut,omitempty"`
	Selfie   string     `json:"selfie,omitempty"`
}

// IsOpen reports whether the session has not been clocked out yet
func (s *AttendanceSession) IsOpen() bool {
	return s != nil && s.ClockOut == nil
}

// Duration returns the worked time, or the time elapsed so far for an open session
func (s *AttendanceSession) Duration(now time.Time) time.Duration {
	if s == nil || s.ClockIn.IsZero() {
		return 0
	}
	if s.ClockOut != nil {
		return s.ClockOut.Sub(s.ClockIn)
	}
	return now.Sub(s.ClockIn)
}

// WorkedTotal is the backend's aggregate of worked time over a report range
type WorkedTotal struct {
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// Duration converts the total to a time.Duration
func (w WorkedTotal) Duration() time.Duration {
	return time.Duration(w.Hours)*time.Hour +
		time.Duration(w.Minutes)*time.Minute +
		time.Duration(w.Seconds*float64(time.Second))
}

// SessionList is a page of attendance sessions. The service answers either with a
// bare array or with {"attendances": [...], "totalTime": {...}}.
type SessionList struct {
	Sessions []*AttendanceSession `json:"attendances"`
	Total    *WorkedTotal         `json:"totalTime,omitempty"`
}

// UnmarshalJSON accepts both response shapes
func (l *SessionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var sessions []*AttendanceSession
		if err := json.Unmarshal(data, &sessions); err != nil {
			return err
		}
		*l = SessionList{Sessions: sessions}
		return nil
	}

	type plain SessionList
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = SessionList(p)
	return nil
}

// Point is a WGS84 coordinate in degrees
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether p is a plausible WGS84 coordinate
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// LocationFix is a single on-demand device position reading
type LocationFix struct {
	Point
	TakenAt time.Time `json:"taken_at" yaml:"taken_at"`
}

// GeoFence is a circular region a user must be inside to clock in
type GeoFence struct {
	Center       Point
	RadiusMeters float64
}

// AttemptKind distinguishes journal entries
type AttemptKind string

const (
	AttemptClockIn  AttemptKind = "clock-in"
	AttemptClockOut AttemptKind = "clock-out"
)

// AttemptOutcome is the resolved result of one clock-in or clock-out attempt
type AttemptOutcome string

const (
	OutcomeSucceeded     AttemptOutcome = "succeeded"
	OutcomeOutsideFence  AttemptOutcome = "outside_fence"
	OutcomeLocationError AttemptOutcome = "location_error"
	OutcomeCancelled     AttemptOutcome = "cancelled"
	OutcomeFailed        AttemptOutcome = "failed"
	OutcomeDiscarded     AttemptOutcome = "discarded"
)

// Attempt records a clock-in or clock-out attempt in the local journal
type Attempt struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Kind           AttemptKind    `json:"kind"`
	Outcome        AttemptOutcome `json:"outcome"`
	SessionID      string         `json:"session_id,omitempty"`
	Fix            *LocationFix   `json:"fix,omitempty"`
	DistanceMeters float64        `json:"distance_meters,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}
