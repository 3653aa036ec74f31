// Package cmd provides the CLI commands for the true-name game services.
//
// # Commands
//
// server: The game service. Owns the batch state machine, exposes the
// player API, and receives decryption results on its oracle callback
// endpoint.
//
//	go run ./cmd/server --oracle=http://localhost:8091
//	go run ./cmd/server --oracle=http://localhost:8091 --db-host=localhost --db-name=truename
//
// oracle: The demo decryption oracle. Holds the dummy encryption scheme,
// mints ciphertexts for demo players, and posts signed decryption results
// back to the game service.
//
//	go run ./cmd/oracle --addr=:8091
//
// demo-cli: Plays one batch end to end against a deployed server and
// oracle pair: opens a batch, binds a secret, submits guesses, closes,
// requests decryption, and polls for the outcome.
//
//	go run ./cmd/demo-cli --server=http://localhost:8080 --oracle=http://localhost:8091 --secret=42 --guesses=42,7,13
//
// # Persistence
//
// The server keeps all state in memory and writes batches and decryption
// contexts through to PostgreSQL when the --db-host flag is set. On
// startup it reloads the persisted state, so a restart does not lose
// open batches or the replay guard on already-applied results.
package cmd
