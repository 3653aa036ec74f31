// Package common provides shared utilities for the service binaries:
// key and instance-id loading, logger construction, and oracle key
// discovery.
package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// NewLogger creates the process logger. JSON output is for deployments
// behind a log collector; text is for terminals.
func NewLogger(json bool, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// LoadOrGenerateInstanceID parses a hex instance id, or draws a random one
// if hexID is empty. A random id is fine for single-run demos; deployments
// that persist state must pin it so commitments survive restarts.
func LoadOrGenerateInstanceID(hexID string) (game.InstanceID, error) {
	if hexID != "" {
		return game.NewInstanceIDFromString(hexID)
	}
	var id game.InstanceID
	if _, err := rand.Read(id[:]); err != nil {
		return id, err
	}
	return id, nil
}

// ParseOpenerKeys parses a comma-separated list of hex public keys. An
// empty input yields nil, meaning no opener restriction.
func ParseOpenerKeys(list string) ([]crypto.PublicKey, error) {
	if list == "" {
		return nil, nil
	}
	var keys []crypto.PublicKey
	for _, raw := range strings.Split(list, ",") {
		pk, err := crypto.NewPublicKeyFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid opener key %q: %w", raw, err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// FetchOracleKey retrieves the oracle's proof-signing key, retrying while
// the oracle comes up.
func FetchOracleKey(oracleURL string, timeout time.Duration) (crypto.PublicKey, error) {
	client := oracle.NewClient(oracleURL)
	deadline := time.Now().Add(timeout)

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pubKey, err := client.FetchPublicKey(ctx)
		cancel()
		if err == nil {
			return pubKey, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("fetching oracle key from %s: %w", oracleURL, err)
		}
		time.Sleep(time.Second)
	}
}
