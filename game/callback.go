package game

import (
	"fmt"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// MatchResult notifies that one participant's guess equals the secret.
// The attacker is the matching participant, the defender the batch
// opener whose true name was hit.
type MatchResult struct {
	BatchID   uint64
	RequestID oracle.RequestID
	Attacker  crypto.PublicKey
	Defender  crypto.PublicKey
}

// MatchReport summarizes one applied decryption result.
type MatchReport struct {
	BatchID    uint64
	RequestID  oracle.RequestID
	MatchCount int
	Matches    []MatchResult
}

// ResultCallback receives one notification per matching participant.
type ResultCallback func(MatchResult)

// SetResultCallback registers the notification sink for match results.
func (e *Engine) SetResultCallback(cb ResultCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resultCb = cb
}

// HandleDecryptionResult is the oracle's entry point. Each step is a hard
// gate, checked in order:
//
//  1. The decryption context must exist and not be processed (replay
//     guard: at-most-once application even under oracle retransmission).
//  2. The canonical vector is re-derived from the batch's current state,
//     never a cached copy, and its commitment recomputed.
//  3. The recomputed commitment must equal the stored one. This is the
//     load-bearing invariant: it catches any divergence of the batch's
//     ciphertext set between request and callback.
//  4. The proof must verify. Failure marks the request Failed and leaves
//     Processed untouched; a fresh request may supersede it.
//  5. The cleartext decodes as fixed-width values in canonical-vector
//     order; each guess equal to the secret counts as a match and emits
//     one notification.
//  6. Processed flips true, the match count lands on the batch, and the
//     batch resolves.
func (e *Engine) HandleDecryptionResult(reqID oracle.RequestID, cleartext, proof []byte) (*MatchReport, error) {
	e.mu.Lock()

	report, err := e.applyResultLocked(reqID, cleartext, proof)

	cb := e.resultCb
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}

	// Notifications go out after the state transition is complete, so a
	// callback that re-enters the engine sees the resolved batch.
	if cb != nil {
		for _, m := range report.Matches {
			cb(m)
		}
	}
	return report, nil
}

func (e *Engine) applyResultLocked(reqID oracle.RequestID, cleartext, proof []byte) (*MatchReport, error) {
	// Gate 1: known, unprocessed, not previously failed.
	dc, ok := e.contexts[reqID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, reqID)
	}
	if dc.Processed {
		return nil, fmt.Errorf("%w: %s", ErrReplay, reqID)
	}
	if dc.Status == RequestFailed {
		return nil, fmt.Errorf("%w: request %s previously failed", ErrVerification, reqID)
	}

	b, ok := e.batches[dc.BatchID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBatch, dc.BatchID)
	}

	// Gates 2 and 3: recompute the commitment from current state and
	// compare. Checked unconditionally; this is the only control over
	// the request/callback gap.
	vector := CanonicalVector(b)
	recomputed := ComputeCommitment(e.cfg.InstanceID, vector)
	if recomputed != dc.Commitment {
		e.log.Warn("Commitment mismatch on callback",
			"requestID", reqID,
			"batchID", dc.BatchID,
			"stored", dc.Commitment.String(),
			"recomputed", recomputed.String())
		return nil, fmt.Errorf("%w: request %s", ErrConsistency, reqID)
	}

	// Gate 4: proof verification. A bad proof is terminal for this
	// request but leaves Processed false and the batch unresolved.
	if err := e.verifier.Verify(reqID, cleartext, proof); err != nil {
		dc.Status = RequestFailed
		b.pendingRequest = ""
		e.log.Warn("Proof verification failed", "requestID", reqID, "batchID", dc.BatchID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	// Gate 5: decode and match. The value count must line up with the
	// committed vector exactly.
	values, err := oracle.DecodeCleartext(cleartext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	guesses := b.Guesses()
	if len(values) != 1+len(guesses) {
		return nil, fmt.Errorf("%w: got %d values, committed vector has %d", ErrVerification, len(values), 1+len(guesses))
	}

	secret := values[0]
	report := &MatchReport{BatchID: dc.BatchID, RequestID: reqID}
	for i, g := range guesses {
		if values[1+i] == secret {
			report.MatchCount++
			report.Matches = append(report.Matches, MatchResult{
				BatchID:   dc.BatchID,
				RequestID: reqID,
				Attacker:  g.Participant,
				Defender:  b.Opener,
			})
		}
	}

	// Gate 6: apply exactly once.
	dc.Processed = true
	dc.Status = RequestResolved
	b.MatchCount = report.MatchCount
	b.Resolved = true
	b.Status = StatusResolved
	b.pendingRequest = ""

	e.log.Info("Decryption result applied",
		"requestID", reqID,
		"batchID", dc.BatchID,
		"matches", report.MatchCount,
		"guesses", len(guesses))
	return report, nil
}
