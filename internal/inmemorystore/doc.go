// Package inmemorystore provides an ephemeral in-memory implementation of
// the nodestore.Store interface.
package inmemorystore
