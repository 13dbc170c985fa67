// Package badger provides a metadata store backed by an embedded BadgerDB
// key-value database. Each record is stored as JSON under "meta:{uid}".
package badger
