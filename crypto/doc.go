// Package crypto provides the signing primitives used to authenticate
// game participants and oracle responses.
//
// Players are identified by Ed25519 public keys: every state-changing
// request carries a signature, and the recovered signer is the caller
// identity the game core sees. The decryption oracle signs its cleartext
// results with the same primitives; that signature is the proof checked
// by the callback validator.
//
// The package deliberately contains no homomorphic-encryption code.
// Ciphertext handling lives in the fhe package and is opaque to this one.
package crypto
