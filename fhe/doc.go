// Package fhe defines the boundary types for externally managed
// homomorphic ciphertexts.
//
// The game core never inspects ciphertext contents. It stores opaque
// Ciphertext values, derives stable content identifiers (Handles) from
// them for commitment hashing, and ships ordered Handle vectors to the
// decryption oracle. Encryption itself happens outside this system;
// the DummyScheme in this package exists only so tests and the demo
// deployment can mint ciphertexts the mock oracle knows how to open.
package fhe
