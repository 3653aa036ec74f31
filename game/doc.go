// Package game implements the batch lifecycle and decryption-callback
// state machine at the heart of the true-name guessing game.
//
// A batch groups one encrypted secret with a bounded, insertion-ordered
// set of encrypted guesses. Once closed, the batch's canonical ciphertext
// vector is committed to by hash and submitted to the external decryption
// oracle. The oracle calls back asynchronously with cleartext and a
// proof; the callback validator re-derives the commitment from current
// state, rejects stale, replayed, or unverifiable responses, and applies
// the result exactly once.
//
// Batches move Open → Closed → DecryptionRequested → Resolved, never
// backward. Requests move Pending → Resolved or Pending → Failed.
//
// The Engine executes state-changing calls strictly serially behind one
// mutex. The only cross-call hazard is the request/callback gap, and the
// commitment comparison is the sole mechanism guarding it: optimistic
// version checking with a content hash as the version token.
package game
