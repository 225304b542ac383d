/*
Package log provides structured logging for timeclock using zerolog.

The log package wraps a single package-level zerolog.Logger with configurable level and
output format, plus helpers that create child loggers carrying the fields the clock-in
flow cares about (component, user, session and attempt IDs).

# Architecture

	┌──────────────────── LOGGING ─────────────────────────────┐
	│                                                            │
	│  log.Init(Config)  ──►  Global Logger (zerolog)           │
	│                              │                             │
	│          ┌───────────────────┼───────────────────┐        │
	│          ▼                   ▼                   ▼        │
	│  WithComponent("auth")  WithUserID(id)   WithAttemptID(id)│
	│                                                            │
	│  Output: console (default) or JSON, stderr by default     │
	└────────────────────────────────────────────────────────────┘

Until Init is called the logger is a no-op, so packages can be used as a library
without producing output.

# Usage

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})

	logger := log.WithComponent("timeclock")
	logger.Info().
		Str("user_id", user.ID).
		Float64("distance_m", distance).
		Msg("Clock-in rejected: outside geofence")

Results meant for the user (tables, timers) are printed on stdout by the CLI; logs go to
stderr so the two never interleave in pipes.
*/
package log
