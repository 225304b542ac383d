/*
Package storage provides BoltDB-backed persistence for timeclock's local client state.

The attendance service owns every business record. The client only persists what a
browser would keep in local storage, plus a troubleshooting journal:

	┌──────────── <dataDir>/timeclock.db ────────────┐
	│  credentials   token        bearer token       │
	│  profiles      current      cached /auth/me    │
	│  attempts      <ns>-<id>    attempt journal    │
	└─────────────────────────────────────────────────┘

Values are JSON encoded. Journal keys are prefixed with the zero-padded start time in
nanoseconds so a cursor walks attempts chronologically; ListAttempts walks backwards to
return the newest first.

The database is opened with a two second lock timeout: bbolt takes an exclusive file
lock, and a second CLI invocation should fail fast rather than hang while `timeclock
watch` holds the file.

Missing keys return errors wrapping ErrNotFound:

	token, err := store.GetToken()
	if errors.Is(err, storage.ErrNotFound) {
		// not logged in
	}
*/
package storage
