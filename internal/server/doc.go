// Package server orchestrates the coven-todo server components.
//
// # Overview
//
// The Server owns the store, the to-do UI and the HTTP server. It opens
// the store explicitly and injects it into the UI, so there is no
// package-level database handle anywhere in the program.
//
// # HTTP Endpoints
//
//   - GET /health - Liveness check, always "OK"
//   - GET /health/ready - Readiness check, pings the store
//   - GET /static/... - Embedded stylesheet and other assets
//   - Everything else - the to-do UI (see package webui)
//
// # Listeners
//
// By default the server listens on server.http_addr. With tailscale
// enabled it starts an embedded tsnet node and serves on port 80 of the
// tailnet instead; server.http_addr is then ignored.
//
// # Lifecycle
//
//	srv, err := server.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx) // blocks until ctx is canceled
//
// Run shuts down gracefully within server.shutdown_timeout once ctx is
// canceled. Shutdown closes the HTTP server, the tailnet node, the UI's
// submission cache and the store, and reports every failure it saw.
package server
