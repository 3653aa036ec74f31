package game

import "errors"

// Failure taxonomy. Every failing operation leaves all state exactly as
// it was before the call began. The first six surface synchronously to
// the calling participant; the last three surface only to the oracle's
// callback invocation.
var (
	// ErrUnauthorized: the caller lacks the required role.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrPaused: the system is administratively paused.
	ErrPaused = errors.New("system paused")

	// ErrRateLimited: the caller's cooldown interval has not elapsed.
	ErrRateLimited = errors.New("cooldown not elapsed")

	// ErrLifecycle: the operation is invalid for the batch's status.
	ErrLifecycle = errors.New("invalid batch lifecycle state")

	// ErrCapacity: the guess collection is at its capacity bound.
	ErrCapacity = errors.New("batch guess capacity reached")

	// ErrStaleVersion: the batch's captured model version no longer
	// matches the current encryption parameters.
	ErrStaleVersion = errors.New("stale model version")

	// ErrUnknownBatch: no batch with the given id.
	ErrUnknownBatch = errors.New("unknown batch")

	// ErrNoSecret: the batch has no secret bound yet.
	ErrNoSecret = errors.New("no secret submitted")

	// ErrRequestOutstanding: a decryption request for the batch is still
	// pending; a duplicate is rejected until it resolves or fails.
	ErrRequestOutstanding = errors.New("decryption request outstanding")

	// ErrUnknownRequest: no decryption context for the request id.
	ErrUnknownRequest = errors.New("unknown decryption request")

	// ErrReplay: the request was already processed; the result has been
	// applied and may not be applied again.
	ErrReplay = errors.New("decryption request already processed")

	// ErrConsistency: the commitment recomputed from current batch state
	// does not match the one stored at request time.
	ErrConsistency = errors.New("commitment mismatch")

	// ErrVerification: the oracle's proof did not verify against the
	// cleartext and request id.
	ErrVerification = errors.New("proof verification failed")
)
