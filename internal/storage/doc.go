// Package storage provides persistence adapters for vault envelopes.
//
// An adapter stores one opaque blob per owner and never inspects or mutates
// the ciphertext fields inside it. Two adapters exist:
//   - BoltStore: a single BBolt database file (the default vault file)
//   - FileStore: one JSON file per owner, replaced atomically (export/import)
//
// BoltStore uses three buckets:
//   - config: schema version and creation time (unencrypted)
//   - envelopes: owner id -> envelope blob
//   - owners: owner id -> created/modified timestamps and blob size (unencrypted)
//
// The owners bucket lets `keepvault status` work without a password.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
