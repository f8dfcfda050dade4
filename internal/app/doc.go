// Package app bootstraps and runs the toolgate server.
//
// The Application follows a two-phase pattern:
//  1. Bootstrap: initialize logging from the resolved configuration and wire
//     every service (session store, protocol engine, router, optional OAuth
//     proxy with its client store, metrics and the HTTP server).
//  2. Run: serve until the context is cancelled or SIGINT/SIGTERM arrives,
//     then shut down gracefully and close every session.
//
// Readiness and shutdown are reported to systemd when the process runs as a
// notify service.
package app
