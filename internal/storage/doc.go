// Package storage holds the blobs the coordinator stages for remote
// instances, chiefly ElasticInbox installer tarballs that were configured as
// local files and must be downloadable over HTTP.
//
// # Implementations
//
// MemoryStore: map guarded by sync.RWMutex
//   - No persistence; contents are lost on restart
//   - Used by tests and by the CLI when it stages packages offline
//
// BadgerStore: github.com/dgraph-io/badger/v4
//   - Persistent under a data directory, or in-memory when the directory is empty
//   - Used by the coordinator when BLOB_DIR is set
//
// # Keys
//
// Keys are opaque to the store. The stage package uses the hex blake3 digest
// of the blob, so a Put of identical content is idempotent.
//
// # Concurrency
//
// Both implementations are safe for concurrent use. Values handed to Put and
// returned by Get are copied; callers may modify them freely.
//
// # Errors
//
// Get returns ErrKeyNotFound for a missing key. Delete of a missing key
// succeeds. Backend failures are returned unwrapped.
package storage
