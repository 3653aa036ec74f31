package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

func TestCallbackAppliesMatches(t *testing.T) {
	env := newTestEnv(t, 0, 0)
	ctx := context.Background()

	// Secret 42, guesses [42, 7, 42] from three distinct participants.
	id, participants := env.openBatch(t, 42, 42, 7, 42)

	reqID, err := env.engine.RequestDecryption(ctx, genKey(t), id)
	require.NoError(t, err)
	require.NoError(t, env.mock.Deliver(reqID))

	view, err := env.engine.View(id)
	require.NoError(t, err)
	require.Equal(t, 2, view.MatchCount)
	require.True(t, view.Resolved)
	require.Equal(t, StatusResolved.String(), view.Status)

	// Exactly the first and third participants, attributed as attackers
	// against the opener.
	require.Len(t, env.matches, 2)
	require.Equal(t, participants[0].String(), env.matches[0].Attacker.String())
	require.Equal(t, participants[2].String(), env.matches[1].Attacker.String())
	require.Equal(t, view.Opener, env.matches[0].Defender.String())
	require.NotEqual(t, env.matches[0].Attacker.String(), env.matches[0].Defender.String())

	dc, err := env.engine.Context(reqID)
	require.NoError(t, err)
	require.True(t, dc.Processed)
	require.Equal(t, RequestResolved, dc.Status)
}

func TestCallbackReplayRejected(t *testing.T) {
	env := newTestEnv(t, 0, 0)

	id, _ := env.openBatch(t, 42, 42, 7)
	reqID, err := env.engine.RequestDecryption(context.Background(), genKey(t), id)
	require.NoError(t, err)

	require.NoError(t, env.mock.Deliver(reqID))

	viewBefore, err := env.engine.View(id)
	require.NoError(t, err)

	// Oracle retransmission of the identical result.
	err = env.mock.Redeliver(reqID)
	require.ErrorIs(t, err, ErrReplay)

	viewAfter, err := env.engine.View(id)
	require.NoError(t, err)
	require.Equal(t, viewBefore.MatchCount, viewAfter.MatchCount)
	require.Len(t, env.matches, 1)
}

func TestCallbackConsistencyViolation(t *testing.T) {
	env := newTestEnv(t, 0, 0)

	id, _ := env.openBatch(t, 42, 42)
	reqID, err := env.engine.RequestDecryption(context.Background(), genKey(t), id)
	require.NoError(t, err)

	// Mutate the guess set behind the engine's back, bypassing the
	// Closed-state guard. The recomputed commitment must diverge.
	env.engine.batches[id].guesses.Put(genKey(t), env.encrypt(t, 9))

	err = env.mock.Deliver(reqID)
	require.ErrorIs(t, err, ErrConsistency)

	dc, err := env.engine.Context(reqID)
	require.NoError(t, err)
	require.False(t, dc.Processed)
	require.Equal(t, RequestPending, dc.Status)

	view, err := env.engine.View(id)
	require.NoError(t, err)
	require.False(t, view.Resolved)
}

func TestCallbackVerificationFailureAndSupersede(t *testing.T) {
	env := newTestEnv(t, 0, 0)
	ctx := context.Background()

	id, _ := env.openBatch(t, 42, 42)
	reqID, err := env.engine.RequestDecryption(ctx, genKey(t), id)
	require.NoError(t, err)

	cleartext := oracle.EncodeCleartext([]uint32{42, 42})
	badProof := make([]byte, 64)

	_, err = env.engine.HandleDecryptionResult(reqID, cleartext, badProof)
	require.ErrorIs(t, err, ErrVerification)

	// Processed unchanged, request terminally failed.
	dc, err := env.engine.Context(reqID)
	require.NoError(t, err)
	require.False(t, dc.Processed)
	require.Equal(t, RequestFailed, dc.Status)

	// A correctly proven retransmission of the failed request is still
	// rejected: Failed is terminal.
	err = env.mock.Deliver(reqID)
	require.ErrorIs(t, err, ErrVerification)
	dc, err = env.engine.Context(reqID)
	require.NoError(t, err)
	require.False(t, dc.Processed)

	// A fresh request supersedes the failed one and resolves the batch.
	reqID2, err := env.engine.RequestDecryption(ctx, genKey(t), id)
	require.NoError(t, err)
	require.NotEqual(t, reqID, reqID2)
	require.NoError(t, env.mock.Deliver(reqID2))

	view, err := env.engine.View(id)
	require.NoError(t, err)
	require.True(t, view.Resolved)
	require.Equal(t, 1, view.MatchCount)
}

func TestCallbackUnknownRequest(t *testing.T) {
	env := newTestEnv(t, 0, 0)

	_, err := env.engine.HandleDecryptionResult("no-such-request", nil, nil)
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func TestCallbackMalformedCleartext(t *testing.T) {
	env := newTestEnv(t, 0, 0)
	ctx := context.Background()

	id, _ := env.openBatch(t, 42, 42, 7)
	reqID, err := env.engine.RequestDecryption(ctx, genKey(t), id)
	require.NoError(t, err)

	// A validly proven result whose value vector is shorter than the
	// committed vector: only the length gate can reject it.
	short := oracle.EncodeCleartext([]uint32{42, 42}) // 2 values, vector has 3
	proof, err := oracle.SignResult(env.oracleKey, reqID, short)
	require.NoError(t, err)

	_, err = env.engine.HandleDecryptionResult(reqID, short, proof)
	require.ErrorIs(t, err, ErrVerification)

	dc, err := env.engine.Context(reqID)
	require.NoError(t, err)
	require.False(t, dc.Processed)
}
