// Package kv provides the string key-value persistence the vault stores sit on.
//
// Backends:
//   - FileStore: one JSON document on disk, replaced atomically on each write
//   - BadgerStore: a badger database directory
//   - MemoryStore: process memory, for tests and ephemeral use
//
// File and badger backends claim their path for the lifetime of the handle;
// opening the same path twice in one process fails with domain.ErrStoreInUse.
package kv
