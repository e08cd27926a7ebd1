// Package registry holds the in-memory record of which catalog targets are
// currently requested and running.
package registry
