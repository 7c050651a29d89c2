// Package git checks whether vault files are exposed to a git repository.
//
// A vault file holds only ciphertext, but publishing it hands an attacker
// the wrapped keys for offline guessing. Checks performed:
//   - Whether the vault file is tracked by git (should not be)
//   - Whether the vault file is covered by .gitignore (should be)
package git
