// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// A hash produced under weaker parameters than the current [Config] reports true from
// [Hasher.NeedsRehash]; callers re-hash after the next successful [Hasher.Verify].
package password
