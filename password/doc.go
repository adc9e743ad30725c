// Package password implements Argon2id password hashing and verification.
//
// # Output format
//
// Hashes use the PHC string format with unpadded base64:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification derives its parameters from the stored hash, so parameter
// changes never invalidate existing credentials. [Hasher.NeedsRehash]
// reports when a stored hash is weaker than the current parameters.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and keep hashes.
//   - Import go2fa or any sibling package.
//   - Log plaintext passwords.
package password
