// Package server assembles the HTTP surface of toolgate and runs it.
//
// # Endpoints
//
//   - /health - liveness and dependency check (unauthenticated)
//   - /metrics - Prometheus metrics (unauthenticated)
//   - /mcp - streamable binding
//   - /sse - event-stream binding (stateful mode only)
//   - /messages - message endpoint of the event-stream binding
//   - OAuth endpoints of the authrouter package, when auth is enabled
//
// When auth is enabled /sse and /messages require a bearer token, and /mcp
// does too if ProtectStreamable is set.
//
//	┌──────────────────────────────────────────────┐
//	│                   toolgate                   │
//	│                                              │
//	│  [ Bearer middleware ] ─── authrouter        │
//	│            │                                 │
//	│            ▼                                 │
//	│  [ Session router ] ─── session.Store        │
//	│            │                                 │
//	│            ▼                                 │
//	│  [ mcp-go engine + tools ]                   │
//	└──────────────────────────────────────────────┘
package server
