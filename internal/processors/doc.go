// Package processors contains the worker kinds shipped with targetsync.
//
//   - log: writes every refresh and relevant change event to the structured
//     log. Useful as a default kind and for dry runs.
//   - snapshot: materializes each catalog target as a YAML file in a
//     directory and appends the change events that concern it to a journal
//     next to that file.
//
// Both kinds accept and process change events.
package processors
