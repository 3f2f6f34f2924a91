// Package password hashes and verifies account passwords.
//
// # Output format
//
// [Argon2] writes PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] writes the usual $2a$/$2b$ modular crypt strings and is kept so that
// accounts created by earlier deployments still sign in. [Chain] hashes with one
// primary [Hasher] and verifies with whichever hasher recognizes the stored
// format; [Chain.NeedsUpgrade] reports legacy or under-parameterised hashes so a
// caller can re-hash after a successful sign-in.
//
// Comparison is constant time in both hashers.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (character
// classes) is enforced by farmAuth.ValidatePasswordStrength.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other farmAuth package.
//   - Log plaintext passwords.
package password
