// Package config loads the targetsync configuration file.
//
// Configuration lives in a single config.yaml inside the configuration
// directory (by default ~/.config/targetsync). A missing file is not an
// error: the defaults describe a connector reading targets.yaml from the same
// directory and logging every target.
//
// Example config.yaml:
//
//	connector:
//	  name: catalog-sync
//	  permittedSynchronization: bothDirections
//	  refreshInterval: 1m
//	  pageSize: 100
//	  stopTimeout: 10s
//	  listenForEvents: true
//	  retryFailedConnectors: true
//	  configuration:
//	    region: eu-west-1
//	source:
//	  type: sqlite
//	  sqlite:
//	    dsn: /var/lib/targetsync/catalog.db
//	workers:
//	  defaultKind: log
//	  elementTypes:
//	    table: snapshot
//	  snapshotDir: /var/lib/targetsync/snapshots
//	logging:
//	  level: info
//	  format: json
//	metrics:
//	  address: ":9090"
//
// Durations are Go duration strings. Validate reports every problem at once.
package config
