package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/game"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
	"github.com/mming1274-7/True-Name-RPG-FHE/policy"
)

type testService struct {
	scheme  *fhe.DummyScheme
	engine  *game.Engine
	mock    *oracle.MockOracle
	pol     *policy.Registry
	store   *InMemoryStore
	handler *GameHandler
	server  *httptest.Server
	client  *http.Client
}

// newTestService wires an engine, mock oracle, and handler behind an
// httptest server. The mock delivers results through the real HTTP
// callback endpoint.
func newTestService(t *testing.T, cooldown time.Duration) *testService {
	t.Helper()

	scheme, err := fhe.NewDummyScheme()
	require.NoError(t, err)

	_, oracleKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	oraclePub, err := oracleKey.PublicKey()
	require.NoError(t, err)

	ts := &testService{
		scheme: scheme,
		pol:    policy.NewRegistry(cooldown),
		store:  NewInMemoryStore(),
		client: &http.Client{Timeout: 5 * time.Second},
	}

	ts.mock = oracle.NewMockOracle(scheme, oracleKey, func(id oracle.RequestID, cleartext, proof []byte) error {
		body, _ := json.Marshal(oracle.CallbackRequest{RequestID: id, Cleartext: cleartext, Proof: proof})
		resp, err := ts.client.Post(ts.server.URL+"/oracle/callback", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("callback rejected with status %d: %s", resp.StatusCode, msg)
		}
		return nil
	})

	log := slog.Default()
	ts.engine = game.NewEngine(game.Config{
		InstanceID: game.InstanceID{0x42},
		Log:        log,
	}, ts.pol, ts.mock, &oracle.Ed25519Verifier{OraclePublicKey: oraclePub})

	ts.handler = NewGameHandler(ts.engine, ts.store, log)

	router := chi.NewRouter()
	ts.handler.RegisterRoutes(router)
	ts.server = httptest.NewServer(router)
	t.Cleanup(ts.server.Close)

	return ts
}

func genSigner(t *testing.T) crypto.PrivateKey {
	t.Helper()
	_, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return key
}

// postSigned signs obj with key and posts it, returning the response.
func postSigned[T any](t *testing.T, ts *testService, key crypto.PrivateKey, path string, obj *T) *http.Response {
	t.Helper()

	signed, err := crypto.NewSigned(key, obj)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	resp, err := ts.client.Post(ts.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testService) openBatch(t *testing.T, opener crypto.PrivateKey, secret uint32) uint64 {
	t.Helper()

	resp := postSigned(t, ts, opener, "/batch/open", &OpenRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	open := decodeBody[OpenResponse](t, resp)

	ct, err := ts.scheme.Encrypt(secret)
	require.NoError(t, err)
	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/secret", open.BatchID),
		&SecretRequest{BatchID: open.BatchID, Payload: ct.Bytes()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	return open.BatchID
}

func (ts *testService) guess(t *testing.T, key crypto.PrivateKey, batchID uint64, value uint32) *http.Response {
	t.Helper()
	ct, err := ts.scheme.Encrypt(value)
	require.NoError(t, err)
	return postSigned(t, ts, key, fmt.Sprintf("/batch/%d/guess", batchID),
		&GuessRequest{BatchID: batchID, Payload: ct.Bytes()})
}

func TestHandlerOpenSubmitClose(t *testing.T) {
	ts := newTestService(t, 0)
	opener := genSigner(t)

	id := ts.openBatch(t, opener, 42)
	require.Equal(t, uint64(1), id)

	resp := ts.guess(t, genSigner(t), id, 7)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/close", id), &CloseRequest{BatchID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	getResp, err := ts.client.Get(ts.server.URL + fmt.Sprintf("/batch/%d", id))
	require.NoError(t, err)
	view := decodeBody[game.BatchView](t, getResp)
	require.Equal(t, "closed", view.Status)
	require.True(t, view.SecretSet)
	require.Len(t, view.Guesses, 1)
}

func TestHandlerStatusMapping(t *testing.T) {
	ts := newTestService(t, 0)
	opener := genSigner(t)
	id := ts.openBatch(t, opener, 42)

	// Unknown batch.
	resp := postSigned(t, ts, opener, "/batch/99/close", &CloseRequest{BatchID: 99})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// URL/body mismatch.
	resp = postSigned(t, ts, opener, "/batch/2/close", &CloseRequest{BatchID: id})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Closing someone else's batch.
	resp = postSigned(t, ts, genSigner(t), fmt.Sprintf("/batch/%d/close", id), &CloseRequest{BatchID: id})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Paused system.
	ts.pol.SetPaused(true)
	resp = ts.guess(t, genSigner(t), id, 7)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
	ts.pol.SetPaused(false)

	// Decryption of a still-open batch is a lifecycle conflict.
	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/request-decryption", id), &DecryptRequest{BatchID: id})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Garbage envelope.
	raw, err := ts.client.Post(ts.server.URL+"/batch/open", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()
}

func TestHandlerRateLimited(t *testing.T) {
	ts := newTestService(t, time.Hour)
	opener := genSigner(t)

	resp := postSigned(t, ts, opener, "/batch/open", &OpenRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	open := decodeBody[OpenResponse](t, resp)

	ct, err := ts.scheme.Encrypt(42)
	require.NoError(t, err)
	resp = postSigned(t, ts, opener, fmt.Sprintf("/batch/%d/secret", open.BatchID),
		&SecretRequest{BatchID: open.BatchID, Payload: ct.Bytes()})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}
