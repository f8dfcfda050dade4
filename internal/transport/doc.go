// Package transport adapts HTTP connections to the MCP protocol engine.
//
// A handle is one stateful client connection. It implements
// server.ClientSession from mcp-go, so the engine can address notifications
// to it, and it serializes message processing so requests racing on the same
// session are handled one at a time in arrival order.
//
// Two handle kinds exist, one per wire binding:
//
//   - StreamableHandle answers POSTed JSON-RPC messages in the HTTP response,
//     streams server-initiated notifications on a single GET stream, and is
//     terminated by DELETE.
//   - SSEHandle owns a long-lived text/event-stream response. Its first event
//     announces the message endpoint; messages POSTed there are acknowledged
//     with 202 and answered on the stream.
//
// Handles close exactly once. Close unregisters the handle from the engine and
// runs the hooks added with OnClose, which is how the session store learns
// that an entry must go.
package transport
