package game

import (
	"fmt"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// GuessRecord is one guess in persistence form.
type GuessRecord struct {
	Participant string `json:"participant"`
	Payload     []byte `json:"payload"`
}

// BatchRecord is a batch's complete persistence form: everything needed
// to rebuild the in-memory batch, including raw ciphertext payloads.
type BatchRecord struct {
	ID             uint64           `json:"id"`
	Status         BatchStatus      `json:"status"`
	ModelVersion   fhe.ModelVersion `json:"model_version"`
	Opener         string           `json:"opener"`
	SecretPayload  []byte           `json:"secret_payload,omitempty"`
	Guesses        []GuessRecord    `json:"guesses"`
	MatchCount     int              `json:"match_count"`
	Resolved       bool             `json:"resolved"`
	PendingRequest oracle.RequestID `json:"pending_request,omitempty"`
}

// ContextRecord is a decryption context's persistence form.
type ContextRecord struct {
	RequestID    oracle.RequestID `json:"request_id"`
	BatchID      uint64           `json:"batch_id"`
	ModelVersion fhe.ModelVersion `json:"model_version"`
	Commitment   []byte           `json:"commitment"`
	Processed    bool             `json:"processed"`
	Status       RequestStatus    `json:"status"`
}

// GuessView is one guess in public API form: participant and content
// identifier only, no ciphertext payload.
type GuessView struct {
	Participant string `json:"participant"`
	Handle      string `json:"handle"`
}

// BatchView is a batch's public API form.
type BatchView struct {
	ID           uint64           `json:"id"`
	Status       string           `json:"status"`
	ModelVersion fhe.ModelVersion `json:"model_version"`
	Opener       string           `json:"opener"`
	SecretSet    bool             `json:"secret_set"`
	Guesses      []GuessView      `json:"guesses"`
	MatchCount   int              `json:"match_count"`
	Resolved     bool             `json:"resolved"`
}

// View returns the public form of a batch.
func (e *Engine) View(batchID uint64) (BatchView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.batches[batchID]
	if !ok {
		return BatchView{}, ErrUnknownBatch
	}

	view := BatchView{
		ID:           b.ID,
		Status:       b.Status.String(),
		ModelVersion: b.ModelVersion,
		Opener:       b.Opener.String(),
		SecretSet:    !b.Secret.IsZero(),
		MatchCount:   b.MatchCount,
		Resolved:     b.Resolved,
	}
	for _, g := range b.Guesses() {
		view.Guesses = append(view.Guesses, GuessView{
			Participant: g.Participant.String(),
			Handle:      g.Ciphertext.Handle().String(),
		})
	}
	return view, nil
}

// Snapshot returns the persistence form of a batch.
func (e *Engine) Snapshot(batchID uint64) (BatchRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.batches[batchID]
	if !ok {
		return BatchRecord{}, ErrUnknownBatch
	}

	rec := BatchRecord{
		ID:             b.ID,
		Status:         b.Status,
		ModelVersion:   b.ModelVersion,
		Opener:         b.Opener.String(),
		MatchCount:     b.MatchCount,
		Resolved:       b.Resolved,
		PendingRequest: b.pendingRequest,
	}
	if !b.Secret.IsZero() {
		rec.SecretPayload = b.Secret.Bytes()
	}
	for _, g := range b.Guesses() {
		rec.Guesses = append(rec.Guesses, GuessRecord{
			Participant: g.Participant.String(),
			Payload:     g.Ciphertext.Bytes(),
		})
	}
	return rec, nil
}

// SnapshotContext returns the persistence form of a decryption context.
func (e *Engine) SnapshotContext(reqID oracle.RequestID) (ContextRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dc, ok := e.contexts[reqID]
	if !ok {
		return ContextRecord{}, ErrUnknownRequest
	}
	return ContextRecord{
		RequestID:    dc.RequestID,
		BatchID:      dc.BatchID,
		ModelVersion: dc.ModelVersion,
		Commitment:   dc.Commitment[:],
		Processed:    dc.Processed,
		Status:       dc.Status,
	}, nil
}

// Restore rebuilds engine state from persisted records. Only valid on a
// fresh engine; the id counter resumes past the highest restored id.
func (e *Engine) Restore(batches []BatchRecord, contexts []ContextRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.batches) != 0 || len(e.contexts) != 0 {
		return fmt.Errorf("restore on non-empty engine")
	}

	for _, rec := range batches {
		opener, err := crypto.NewPublicKeyFromString(rec.Opener)
		if err != nil {
			return fmt.Errorf("batch %d: invalid opener: %w", rec.ID, err)
		}

		b := newBatch(rec.ID, opener, rec.ModelVersion)
		b.Status = rec.Status
		b.MatchCount = rec.MatchCount
		b.Resolved = rec.Resolved
		b.pendingRequest = rec.PendingRequest

		if len(rec.SecretPayload) != 0 {
			secret, err := fhe.NewCiphertext(rec.SecretPayload)
			if err != nil {
				return fmt.Errorf("batch %d: invalid secret payload: %w", rec.ID, err)
			}
			b.Secret = secret
		}
		for _, g := range rec.Guesses {
			participant, err := crypto.NewPublicKeyFromString(g.Participant)
			if err != nil {
				return fmt.Errorf("batch %d: invalid participant: %w", rec.ID, err)
			}
			ct, err := fhe.NewCiphertext(g.Payload)
			if err != nil {
				return fmt.Errorf("batch %d: invalid guess payload: %w", rec.ID, err)
			}
			b.guesses.Put(participant, ct)
		}

		e.batches[rec.ID] = b
		if rec.ID > e.nextID {
			e.nextID = rec.ID
		}
	}

	for _, rec := range contexts {
		if len(rec.Commitment) != len(Commitment{}) {
			return fmt.Errorf("context %s: invalid commitment size", rec.RequestID)
		}
		dc := &DecryptionContext{
			RequestID:    rec.RequestID,
			BatchID:      rec.BatchID,
			ModelVersion: rec.ModelVersion,
			Processed:    rec.Processed,
			Status:       rec.Status,
		}
		copy(dc.Commitment[:], rec.Commitment)
		e.contexts[rec.RequestID] = dc
	}

	return nil
}
