/*
Package geo provides great-circle distance, geofence evaluation and one-shot
device location sources.

Distances use the haversine formula over the mean earth radius. A fix is inside
a fence when its distance to the center is at most the radius; the boundary
counts as inside.

Locators never cache: every Locate call reads the source again. FileLocator
reads a YAML fix written by an external GPS helper:

	latitude: 23.8103
	longitude: 90.4125
	taken_at: 2026-03-02T09:00:00Z

and reports ErrPositionUnavailable when the fix is older than its max age. A
helper that cannot get a position writes an error field instead
("permission_denied", "unsupported" or "unavailable").
*/
package geo
