// Package metrics exposes Prometheus metrics for sessions, routing
// rejections, upstream OAuth calls and HTTP requests.
//
// A Metrics value implements the observer interfaces of the session,
// router and oauthproxy packages, so it is handed to each of them at
// bootstrap. Everything is registered on a private registry served by
// Handler.
package metrics
