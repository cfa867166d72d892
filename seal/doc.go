// Package seal provides optional passphrase protection for bundle archives.
//
// A sealed bundle is the archive bytes wrapped in an AEAD envelope keyed
// from the run id. This is anti-auto-execution friction so that downstream
// tooling cannot accidentally unpack and execute a bundle; it is NOT a
// security boundary and must not be relied on for confidentiality: the run
// id travels with the bundle's coordinates.
package seal
