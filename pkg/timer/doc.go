// Package timer derives elapsed session time from an authoritative start instant
// and renders it on a fixed cadence.
package timer
