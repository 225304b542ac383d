/*
Package types defines the data structures shared by every timeclock package.

The types mirror the payloads of the remote attendance service (users, attendance
sessions, assigned locations) plus the client-side values the clock-in flow works
with (location fixes, geofences and journal attempts).

# Core Types

Identity:
  - User: authenticated profile with role, assigned location and open-session reference
  - Role: admin or user
  - AssignedLocation: label plus [lat, lng] pair set by an administrator
  - SessionRef: open-session reference, either a bare ID or a populated session

Attendance:
  - AttendanceSession: clock-in instant, optional clock-out instant, selfie URL
  - Attempt: one locally journaled clock-in or clock-out attempt and its outcome

Location:
  - Point: WGS84 coordinate in degrees
  - LocationFix: one on-demand device reading, never cached between attempts
  - GeoFence: center plus radius in meters

# Invariants

An AttendanceSession with a nil ClockOut is open. The backend guarantees at most one
open session per user; the client never assumes a session is open without having
fetched it.

Payload structs carry validate tags consumed by pkg/client when decoding responses, so a
malformed body is rejected at the boundary instead of reaching the state machine.
*/
package types
