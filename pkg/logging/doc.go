// Package logging provides the subsystem-tagged logger used throughout toolgate.
//
// It is a thin layer over log/slog: every entry carries a subsystem attribute
// and an optional error, and messages use printf-style formatting.
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Router", "Session %s registered", logging.TruncateSessionID(id))
//	logging.Error("ClientStore", err, "Failed to persist client %s", clientID)
//
// Subsystems in use:
//
//   - **Bootstrap**: application initialization and shutdown
//   - **Config**: configuration loading and validation
//   - **Router**: session routing for both bindings
//   - **Transport**: session handles and the protocol engine
//   - **OAuthProxy**: upstream identity provider calls
//   - **AuthRouter**: authorization endpoints and bearer checks
//   - **ClientStore**: persisted client records
//
// Session ids should be passed through TruncateSessionID before logging, and
// tokens must never be logged.
package logging
