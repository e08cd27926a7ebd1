// Package sources opens the catalog target source selected in the
// configuration, together with its change event source when it has one.
package sources
