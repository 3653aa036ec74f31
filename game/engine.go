package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
	"github.com/mming1274-7/True-Name-RPG-FHE/policy"
)

// DefaultCapacity bounds the number of distinct participants per batch.
const DefaultCapacity = 8

// Config carries the engine's fixed parameters.
type Config struct {
	// InstanceID distinguishes this deployment in commitments.
	InstanceID InstanceID

	// Capacity bounds distinct participants per batch. Zero means
	// DefaultCapacity.
	Capacity int

	// CallbackURL is the designation handed to the oracle with every
	// decryption request.
	CallbackURL string

	// InitialModelVersion tags the encryption-parameter generation the
	// engine starts under.
	InitialModelVersion fhe.ModelVersion

	Log *slog.Logger
}

// Engine owns every batch and decryption context and executes all
// state-changing calls strictly serially: one call runs to completion
// before the next begins. Failing calls leave no partial writes.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	policy   policy.AccessPolicy
	oracle   oracle.Oracle
	verifier oracle.Verifier
	log      *slog.Logger

	nextID       uint64
	modelVersion fhe.ModelVersion
	batches      map[uint64]*Batch
	contexts     map[oracle.RequestID]*DecryptionContext

	resultCb ResultCallback
}

// NewEngine creates an engine. The oracle and verifier are the external
// decryption service's two faces; the policy gates every entry point.
func NewEngine(cfg Config, pol policy.AccessPolicy, orc oracle.Oracle, verifier oracle.Verifier) *Engine {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:          cfg,
		policy:       pol,
		oracle:       orc,
		verifier:     verifier,
		log:          log,
		modelVersion: cfg.InitialModelVersion,
		batches:      make(map[uint64]*Batch),
		contexts:     make(map[oracle.RequestID]*DecryptionContext),
	}
}

// ModelVersion returns the current encryption-parameter generation tag.
func (e *Engine) ModelVersion() fhe.ModelVersion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelVersion
}

// RotateModelVersion bumps the current model version. Admin surface,
// invoked when the external encryption parameters rotate; batches opened
// under the previous version can no longer accept secrets.
func (e *Engine) RotateModelVersion() fhe.ModelVersion {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modelVersion++
	e.log.Info("Model version rotated", "version", e.modelVersion)
	return e.modelVersion
}

// Open allocates the next batch id for the caller. Gates in order:
// authorization, availability, rate limit.
func (e *Engine) Open(caller crypto.PublicKey) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy.IsAuthorizedOpener(caller) {
		return 0, ErrUnauthorized
	}
	if e.policy.IsPaused() {
		return 0, ErrPaused
	}
	if !e.policy.CooldownElapsed(caller) {
		return 0, ErrRateLimited
	}

	e.nextID++
	b := newBatch(e.nextID, caller, e.modelVersion)
	e.batches[b.ID] = b
	e.policy.RecordAction(caller)

	e.log.Info("Batch opened", "batchID", b.ID, "opener", caller.String(), "modelVersion", b.ModelVersion)
	return b.ID, nil
}

// SubmitSecret binds or overwrites the batch's secret ciphertext. Only
// the opener may set the secret, only while the batch is Open, and only
// while the batch's captured model version is still current: after a
// parameter rotation the stored handle would be incompatible with later
// decryption.
func (e *Engine) SubmitSecret(caller crypto.PublicKey, batchID uint64, secret fhe.Ciphertext) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.batches[batchID]
	if !ok {
		return ErrUnknownBatch
	}
	if !b.Opener.Equal(caller) {
		return ErrUnauthorized
	}
	if e.policy.IsPaused() {
		return ErrPaused
	}
	if !e.policy.CooldownElapsed(caller) {
		return ErrRateLimited
	}
	if b.Status != StatusOpen {
		return fmt.Errorf("%w: batch %d is %s", ErrLifecycle, batchID, b.Status)
	}
	if b.ModelVersion != e.modelVersion {
		return fmt.Errorf("%w: batch captured %d, current %d", ErrStaleVersion, b.ModelVersion, e.modelVersion)
	}

	b.Secret = secret
	e.policy.RecordAction(caller)

	e.log.Info("Secret submitted", "batchID", batchID, "handle", secret.Handle().String())
	return nil
}

// SubmitGuess inserts or overwrites the caller's guess. New participants
// are rejected once the batch holds Capacity distinct guesses;
// resubmission by an existing participant is always allowed and keeps
// the participant's original position.
func (e *Engine) SubmitGuess(caller crypto.PublicKey, batchID uint64, guess fhe.Ciphertext) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.policy.IsPaused() {
		return ErrPaused
	}
	if !e.policy.CooldownElapsed(caller) {
		return ErrRateLimited
	}

	b, ok := e.batches[batchID]
	if !ok {
		return ErrUnknownBatch
	}
	if b.Status != StatusOpen {
		return fmt.Errorf("%w: batch %d is %s", ErrLifecycle, batchID, b.Status)
	}
	if !b.guesses.Has(caller) && b.guesses.Len() >= e.cfg.Capacity {
		return fmt.Errorf("%w: %d guesses", ErrCapacity, b.guesses.Len())
	}

	b.guesses.Put(caller, guess)
	e.policy.RecordAction(caller)

	e.log.Info("Guess submitted", "batchID", batchID, "participant", caller.String(), "guesses", b.guesses.Len())
	return nil
}

// Close freezes the batch's guess set: Open → Closed, irreversible. Only
// the opener may close, and only once a secret is bound — a batch with no
// secret cannot be meaningfully resolved.
func (e *Engine) Close(caller crypto.PublicKey, batchID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.batches[batchID]
	if !ok {
		return ErrUnknownBatch
	}
	if !b.Opener.Equal(caller) {
		return ErrUnauthorized
	}
	if e.policy.IsPaused() {
		return ErrPaused
	}
	if !e.policy.CooldownElapsed(caller) {
		return ErrRateLimited
	}
	if b.Status != StatusOpen {
		return fmt.Errorf("%w: batch %d is %s", ErrLifecycle, batchID, b.Status)
	}
	if b.Secret.IsZero() {
		return ErrNoSecret
	}

	b.Status = StatusClosed
	e.policy.RecordAction(caller)

	e.log.Info("Batch closed", "batchID", batchID, "guesses", b.guesses.Len())
	return nil
}

// RequestDecryption commits to the batch's canonical ciphertext vector
// and submits it to the oracle. Fire and forget: the oracle's id comes
// back synchronously, the cleartext arrives later through the callback.
// A duplicate request while another is still pending is rejected; a
// fresh request may supersede one that failed verification.
func (e *Engine) RequestDecryption(ctx context.Context, caller crypto.PublicKey, batchID uint64) (oracle.RequestID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.policy.IsPaused() {
		return "", ErrPaused
	}
	if !e.policy.CooldownElapsed(caller) {
		return "", ErrRateLimited
	}

	b, ok := e.batches[batchID]
	if !ok {
		return "", ErrUnknownBatch
	}
	if b.Status != StatusClosed && b.Status != StatusDecryptionRequested {
		return "", fmt.Errorf("%w: batch %d is %s", ErrLifecycle, batchID, b.Status)
	}
	if b.Resolved {
		return "", fmt.Errorf("%w: batch %d already resolved", ErrLifecycle, batchID)
	}
	if b.pendingRequest != "" {
		return "", fmt.Errorf("%w: request %s", ErrRequestOutstanding, b.pendingRequest)
	}

	vector := CanonicalVector(b)
	commitment := ComputeCommitment(e.cfg.InstanceID, vector)

	reqID, err := e.oracle.Submit(ctx, vector, e.cfg.CallbackURL)
	if err != nil {
		return "", fmt.Errorf("submitting decryption request: %w", err)
	}

	e.contexts[reqID] = &DecryptionContext{
		RequestID:    reqID,
		BatchID:      batchID,
		ModelVersion: b.ModelVersion,
		Commitment:   commitment,
		Status:       RequestPending,
	}
	b.Status = StatusDecryptionRequested
	b.pendingRequest = reqID
	e.policy.RecordAction(caller)

	e.log.Info("Decryption requested",
		"batchID", batchID,
		"requestID", reqID,
		"commitment", commitment.String(),
		"vectorLen", len(vector))
	return reqID, nil
}

// Context returns a copy of the decryption context for a request id.
func (e *Engine) Context(reqID oracle.RequestID) (DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dc, ok := e.contexts[reqID]
	if !ok {
		return DecryptionContext{}, ErrUnknownRequest
	}
	return *dc, nil
}
