// Package crypto provides the cryptographic primitives used by the vault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte keys (random master key, or a key derived from a secret)
//   - 12-byte random nonce per encryption operation, returned to the caller
//   - optional associated data binding a ciphertext to its context
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt (stored unencrypted next to the ciphertext)
//   - 310,000 iterations
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
