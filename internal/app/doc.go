// Package app bootstraps a targetsync connector process.
//
// NewApplication initializes logging, loads config.yaml through
// internal/config and wires the services with InitializeServices:
//
//  1. The target source and its event source (internal/sources)
//  2. Prometheus metrics (internal/telemetry)
//  3. The worker factory with the configured kinds (internal/processors)
//  4. The reconciliation engine, listener bus and event router
//  5. The connector that orchestrates refreshes and event listening
//
// Run serves until SIGINT or SIGTERM, exposing /metrics when an address is
// configured and notifying systemd about readiness. ReconcileOnce performs a
// single sweep for the reconcile command.
package app
