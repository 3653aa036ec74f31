// Package services exposes the game engine over HTTP and persists its
// state.
//
// GameHandler registers the player-facing routes (open, secret, guess,
// close, request-decryption, batch views) and the oracle's callback
// endpoint on a chi router. Player requests arrive as crypto.Signed
// envelopes; the recovered signer is the caller identity handed to the
// engine. The callback endpoint is unsigned: its authentication is the
// proof itself, checked by the engine's verifier.
//
// BatchStore persists batch and decryption-context records write-behind,
// with a PostgreSQL implementation for deployments and an in-memory twin
// for tests.
package services
