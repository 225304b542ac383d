package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cuemby/timeclock/pkg/types"
)

// GetSession fetches one attendance session of a user
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*types.AttendanceSession, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("user and session IDs are required")
	}

	path := "/attendance/users/" + url.PathEscape(userID) + "/" + url.PathEscape(sessionID)
	req, err := c.jsonRequest("get_session", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var session types.AttendanceSession
	if err := c.do(ctx, req, &session); err != nil {
		return nil, err
	}
	if err := c.check(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionQuery filters ListSessions. A range takes precedence over Limit/Sort.
type SessionQuery struct {
	Start *time.Time
	End   *time.Time
	Limit int
	Sort  string // e.g. "-clockIn"
}

// RecentSessions is the default self-report query: the last five sessions
func RecentSessions() SessionQuery {
	return SessionQuery{Limit: 5, Sort: "-clockIn"}
}

func (q SessionQuery) values() url.Values {
	v := url.Values{}
	if q.Start != nil && q.End != nil {
		v.Set("start_time", q.Start.UTC().Format(time.RFC3339))
		v.Set("end_time", q.End.UTC().Format(time.RFC3339))
		return v
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// ListSessions lists a user's attendance sessions
func (c *Client) ListSessions(ctx context.Context, userID string, q SessionQuery) (*types.SessionList, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	req, err := c.jsonRequest("list_sessions", http.MethodGet, "/attendance/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	req.query = q.values()

	var list types.SessionList
	if err := c.do(ctx, req, &list); err != nil {
		return nil, err
	}
	for _, s := range list.Sessions {
		if err := c.check(s); err != nil {
			return nil, err
		}
	}
	return &list, nil
}

type clockInRequest struct {
	Selfie string `json:"selfie"`
}

// clockInResponse may carry only the new session's ID
type clockInResponse struct {
	Attendance struct {
		ID       string     `json:"_id" validate:"required"`
		UserID   string     `json:"user,omitempty"`
		ClockIn  *time.Time `json:"clockIn,omitempty"`
		ClockOut *time.Time `json:"clockOut,omitempty"`
		Selfie   string     `json:"selfie,omitempty"`
	} `json:"attendance" validate:"required"`
}

// ClockIn opens a session carrying the selfie reference. The returned session has a
// zero ClockIn when the service only echoed the new ID.
func (c *Client) ClockIn(ctx context.Context, selfie string) (*types.AttendanceSession, error) {
	req, err := c.jsonRequest("clock_in", http.MethodPost, "/attendance/clock-in", clockInRequest{Selfie: selfie})
	if err != nil {
		return nil, err
	}

	var resp clockInResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.check(&resp); err != nil {
		return nil, err
	}

	a := resp.Attendance
	session := &types.AttendanceSession{
		ID:       a.ID,
		UserID:   a.UserID,
		ClockOut: a.ClockOut,
		Selfie:   a.Selfie,
	}
	if a.ClockIn != nil {
		session.ClockIn = *a.ClockIn
	}
	return session, nil
}

type clockOutRequest struct {
	UserID string `json:"userId"`
}

// clockOutResponse accepts either the session itself or {"attendance": session}
type clockOutResponse struct {
	types.AttendanceSession
	Attendance *types.AttendanceSession `json:"attendance,omitempty"`
}

// ClockOut closes the user's open session. A nil session with a nil error means the
// service acknowledged without echoing the session.
func (c *Client) ClockOut(ctx context.Context, userID string) (*types.AttendanceSession, error) {
	req, err := c.jsonRequest("clock_out", http.MethodPost, "/attendance/clock-out", clockOutRequest{UserID: userID})
	if err != nil {
		return nil, err
	}

	var resp clockOutResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}

	var session *types.AttendanceSession
	switch {
	case resp.Attendance != nil:
		session = resp.Attendance
	case resp.ID != "":
		s := resp.AttendanceSession
		session = &s
	default:
		return nil, nil
	}
	if err := c.check(session); err != nil {
		return nil, err
	}
	return session, nil
}
