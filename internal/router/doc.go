// Package router maps HTTP requests of both wire bindings onto session
// handles.
//
// Streamable binding (/mcp, session id in the Mcp-Session-Id header):
//
//   - POST with a known session id is routed to that session.
//   - POST without a session id whose body is an initialize request creates,
//     registers and connects a new session, then routes the body to it.
//   - Any other POST is rejected with 400 and leaves the store untouched.
//   - GET attaches the notification stream and DELETE terminates the
//     session; both require a known session id.
//
// Event-stream binding:
//
//   - GET /sse always opens a new session and holds the stream.
//   - POST /messages?sessionId=<id> delivers a message to an open stream.
//
// In stateless mode every POST /mcp is served by a throw-away handle that is
// never registered, and GET/DELETE are rejected with 405.
//
// Routing failures only affect the request at hand. Handlers that fail before
// writing a response fall back to a 500 JSON-RPC envelope, and Recover does
// the same for panics.
package router
