/*
Package client provides a Go client for the attendance REST service.

The client wraps net/http with the conventions the service expects: a base URL such as
https://host/api, a bearer token on every request, JSON bodies, and error bodies of the
form {"msg": "..."}. Every decoded payload is checked with go-playground/validator
before it is returned, so a malformed session or profile never reaches the clock-in
state machine.

# Endpoints

	POST /auth/login                          Login
	POST /auth/register                       Register
	GET  /auth/me                             Me
	GET  /auth/users                          ListUsers (admin)
	GET  /attendance/users/{user}/{session}   GetSession
	GET  /attendance/users/{user}?...         ListSessions
	POST /attendance/clock-in                 ClockIn
	POST /attendance/clock-out                ClockOut
	POST /upload/image                        UploadImage (multipart field "image")
	PUT  /location/set-location/{user}        SetLocation (admin)

# Errors

Non-2xx answers are returned as *APIError. 401 and 404 unwrap to ErrUnauthorized and
ErrNotFound, so callers test with errors.Is. A 401 additionally runs the handler given
to WithUnauthorizedHandler; pkg/auth uses it to tear the login session down.

# Usage

	c, err := client.NewClient("https://attendance.example.com/api",
		client.WithTokenSource(session),
		client.WithUnauthorizedHandler(session.Invalidate),
	)
	if err != nil {
		return err
	}

	user, err := c.Me(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		// log in again
	}

Each call is bounded by a ten second timeout (WithTimeout overrides it) on top of the
caller's context. Requests carry an X-Request-ID header for correlation with backend
logs.
*/
package client
