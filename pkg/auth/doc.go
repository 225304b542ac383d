/*
Package auth manages the process-wide login session.

A Session owns the bearer token and the cached profile. Login and Load create
it, Logout tears it down, and any 401 from the attendance service (or a token
whose exp claim has passed) tears it down as well and makes callers see
ErrLoginRequired. The token is persisted in the local store so the next CLI
invocation can resume it.

Every lifecycle change is published on the event broker:

	user.logged_in    after Login
	user.changed      whenever the profile's user ID changes (User is nil on teardown)
	user.logged_out   on Logout, 401 or expiry (Metadata["reason"])

The attendance controller subscribes to user.changed to reconcile.
*/
package auth
