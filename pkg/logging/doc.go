// Package logging provides structured, subsystem-keyed logging for targetsync
// built on Go's standard slog package.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Usage Examples
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stdout)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Error("Config", err, "Failed to load %s", path)
//
// # Target-scoped logging
//
// Every suppressed per-target failure is written with the owning connector and
// the catalog target as attributes, so operators can see which targets are
// unhealthy while the process keeps running:
//
//	log := logging.ForTarget("Reconciler", "catalog-sync", "orders-db")
//	log.Error(err, "Failed to start resource connector")
//
// produces
//
//	level=ERROR msg="Failed to start resource connector" subsystem=Reconciler connector=catalog-sync target=orders-db error="..."
//
// # Controller-Runtime Integration
//
// Init also installs the handler as the controller-runtime logger, so client
// caches and informers used by the Kubernetes sources log through the same
// output without warnings about uninitialized loggers.
package logging
