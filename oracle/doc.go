// Package oracle defines the boundary to the trusted decryption service.
//
// The game core submits an ordered vector of ciphertext handles together
// with a callback designation and synchronously receives a request id;
// the oracle later invokes the callback with cleartext bytes and a proof,
// in its own time, any number of times. Proofs are Ed25519 signatures
// over the request id and cleartext, checked by a Verifier.
//
// MockOracle decrypts dummy-scheme ciphertexts for tests and demos.
// Client and Service carry the same exchange over HTTP for multi-process
// deployments.
package oracle
