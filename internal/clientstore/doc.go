// Package clientstore persists registered OAuth client records.
//
// Records are opaque JSON documents keyed by client id. They are written
// once, when a registration succeeds, and never updated, expired or deleted.
// Two backends exist: Valkey (any Redis-compatible server) for deployments
// that must survive restarts, and an in-memory map for development and
// tests.
package clientstore
