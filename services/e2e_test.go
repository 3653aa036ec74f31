package services

import (
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
)

// TestE2E_ResolveBatch plays one full batch over the HTTP surface: open,
// secret, guesses, close, decryption request, and the oracle's callback
// through the real endpoint.
func TestE2E_ResolveBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ts := newTestService(t, 0)
	opener := genSigner(t)
	id := ts.openBatch(t, opener, 42)

	guessers := make([]crypto.PrivateKey, 3)
	for i, v := range []uint32{42, 7, 42} {
		guessers[i] = genSigner(t)
		resp := ts.guess(t, guessers[i], id, v)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/close", id), &CloseRequest{BatchID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postSigned(t, ts, genSigner(t), fmt.Sprintf("/batch/%d/request-decryption", id), &DecryptRequest{BatchID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decrypt := decodeBody[DecryptResponse](t, resp)
	require.NotEmpty(t, decrypt.RequestID)

	// The oracle calls back through the HTTP endpoint.
	require.NoError(t, ts.mock.Deliver(decrypt.RequestID))

	getResp, err := ts.client.Get(ts.server.URL + fmt.Sprintf("/results/%d", id))
	require.NoError(t, err)
	results := decodeBody[ResultsResponse](t, getResp)
	require.True(t, results.Resolved)
	require.Equal(t, 2, results.MatchCount)
	require.Len(t, results.Matches, 2)

	firstPub, err := guessers[0].PublicKey()
	require.NoError(t, err)
	thirdPub, err := guessers[2].PublicKey()
	require.NoError(t, err)
	require.Equal(t, firstPub.String(), results.Matches[0].Attacker)
	require.Equal(t, thirdPub.String(), results.Matches[1].Attacker)

	// A retransmitted callback is rejected as a replay and changes nothing.
	err = ts.mock.Redeliver(decrypt.RequestID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "409")

	getResp, err = ts.client.Get(ts.server.URL + fmt.Sprintf("/results/%d", id))
	require.NoError(t, err)
	results = decodeBody[ResultsResponse](t, getResp)
	require.Equal(t, 2, results.MatchCount)
	require.Len(t, results.Matches, 2)
}

// TestE2E_RestoreFromStore resolves a batch, then rebuilds a fresh engine
// from the persisted records and checks the state survived.
func TestE2E_RestoreFromStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ts := newTestService(t, 0)
	opener := genSigner(t)
	id := ts.openBatch(t, opener, 42)

	resp := ts.guess(t, genSigner(t), id, 42)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/close", id), &CloseRequest{BatchID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/request-decryption", id), &DecryptRequest{BatchID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decrypt := decodeBody[DecryptResponse](t, resp)
	require.NoError(t, ts.mock.Deliver(decrypt.RequestID))

	batches, contexts, err := ts.store.LoadAll()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, contexts, 1)

	restored := game.NewEngine(game.Config{InstanceID: game.InstanceID{0x42}, Log: slog.Default()},
		ts.pol, ts.mock, nil)
	require.NoError(t, restored.Restore(batches, contexts))

	view, err := restored.View(id)
	require.NoError(t, err)
	require.True(t, view.Resolved)
	require.Equal(t, 1, view.MatchCount)

	dc, err := restored.Context(decrypt.RequestID)
	require.NoError(t, err)
	require.True(t, dc.Processed)

	// The replay guard survives the restart.
	_, err = restored.HandleDecryptionResult(decrypt.RequestID, nil, nil)
	require.ErrorIs(t, err, game.ErrReplay)
}
