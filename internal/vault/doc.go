// Package vault implements the encrypted secret vault.
//
// A vault holds a random 256-bit master key that encrypts the record list.
// The master key is never stored as is: it is wrapped twice, once under a key
// derived from the owner's password and once under a key derived from a
// system-generated recovery code. Either secret alone recovers the master
// key, and the two wraps share no derived key material.
//
// The only persisted form is the Envelope. Every mutation produces a complete
// replacement envelope.
//
// Lifecycle:
//   - Service.Create: new master key and recovery code, returns an unlocked Session
//   - Service.UnlockWithPassword: Locked -> Unlocked
//   - Service.UnlockWithRecoveryCode: Locked -> RecoveryInProgress
//   - Service.ResetPassword / Session.CompleteReset: RecoveryInProgress -> Unlocked
//   - Session.Save / Session.Update: Unlocked -> Unlocked, fresh data nonce
//   - Session.Lock: Unlocked -> Locked, master key zeroed
//
// A Session is the handle to the resident master key. Its write operations
// are serialized by an internal mutex, so concurrent saves against the same
// session never lose an update.
package vault
