package services

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// ServiceConfig contains configuration for the game HTTP service.
type ServiceConfig struct {
	// HTTPAddr is the service's own listen address, used to derive the
	// oracle callback URL when CallbackURL is empty.
	HTTPAddr string

	// CallbackURL is the absolute URL the oracle posts results to.
	CallbackURL string

	Log *slog.Logger
}

// ResolveCallbackURL returns the callback URL the oracle should post
// results to. When CallbackURL is unset it assumes the oracle can reach
// this service on localhost, which holds for single-host demos only.
func (c *ServiceConfig) ResolveCallbackURL() string {
	if c.CallbackURL != "" {
		return c.CallbackURL
	}
	addr := c.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/oracle/callback", addr)
}

// OpenRequest asks for a new batch. The signer becomes the opener; the
// body carries no fields beyond the envelope's identity.
type OpenRequest struct {
	Note string `json:"note,omitempty"`
}

// OpenResponse returns the allocated batch id.
type OpenResponse struct {
	BatchID uint64 `json:"batch_id"`
}

// SecretRequest binds the opener's encrypted true name to a batch.
type SecretRequest struct {
	BatchID uint64 `json:"batch_id"`
	Payload []byte `json:"payload"`
}

// GuessRequest submits the signer's encrypted guess.
type GuessRequest struct {
	BatchID uint64 `json:"batch_id"`
	Payload []byte `json:"payload"`
}

// CloseRequest freezes a batch's guess set.
type CloseRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// DecryptRequest asks for a decryption of a closed batch.
type DecryptRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// DecryptResponse acknowledges the oracle's request id.
type DecryptResponse struct {
	RequestID oracle.RequestID `json:"request_id"`
}

// MatchNotification is one match result in API form.
type MatchNotification struct {
	BatchID   uint64           `json:"batch_id"`
	RequestID oracle.RequestID `json:"request_id"`
	Attacker  string           `json:"attacker"`
	Defender  string           `json:"defender"`
}

// ResultsResponse lists a resolved batch's matches.
type ResultsResponse struct {
	BatchID    uint64              `json:"batch_id"`
	Resolved   bool                `json:"resolved"`
	MatchCount int                 `json:"match_count"`
	Matches    []MatchNotification `json:"matches"`
}
