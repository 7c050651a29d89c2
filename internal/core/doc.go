// Package core wires the vault lifecycle to persistence for one owner of a
// vault file.
//
// Core operations include:
//   - Init: create the vault, persist it, return the one-time recovery code
//   - Unlock / Recover / ResetPassword: open a session from the stored envelope
//   - AddRecord / UpdateRecord / RemoveRecord: mutate records, persisting the
//     complete replacement envelope after every change
//   - ChangePassword / RotateRecoveryCode: replace one wrapped key
//   - Export / Import: copy the opaque envelope blob
//   - Status: owner bookkeeping and git exposure, no password required
//
// A Manager serializes every save-and-persist step, so the stored blob and the
// in-memory envelope never diverge.
package core
