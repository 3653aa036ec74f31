package oracle

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

func TestServiceClientRoundTrip(t *testing.T) {
	scheme, err := fhe.NewDummyScheme()
	require.NoError(t, err)

	_, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := chi.NewRouter()
	NewService(scheme, key, log).RegisterRoutes(router)
	oracleSrv := httptest.NewServer(router)
	defer oracleSrv.Close()

	received := make(chan CallbackRequest, 1)
	callbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cb CallbackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cb))
		received <- cb
		w.WriteHeader(http.StatusOK)
	}))
	defer callbackSrv.Close()

	client := NewClient(oracleSrv.URL)

	pub, err := client.FetchPublicKey(context.Background())
	require.NoError(t, err)
	expectedPub, err := key.PublicKey()
	require.NoError(t, err)
	require.True(t, expectedPub.Equal(pub))

	values := []uint32{42, 7}
	handles := make([]fhe.Handle, len(values))
	for i, v := range values {
		ct, err := scheme.Encrypt(v)
		require.NoError(t, err)
		handles[i] = ct.Handle()
	}

	id, err := client.Submit(context.Background(), handles, callbackSrv.URL)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var cb CallbackRequest
	select {
	case cb = <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never arrived")
	}

	require.Equal(t, id, cb.RequestID)

	decoded, err := DecodeCleartext(cb.Cleartext)
	require.NoError(t, err)
	require.Equal(t, values, decoded)

	v := &Ed25519Verifier{OraclePublicKey: pub}
	require.NoError(t, v.Verify(cb.RequestID, cb.Cleartext, cb.Proof))

	// The demo encrypt endpoint mints ciphertexts the scheme can resolve.
	ct, err := client.Encrypt(context.Background(), 99)
	require.NoError(t, err)
	got, err := scheme.DecryptHandle(ct.Handle())
	require.NoError(t, err)
	require.Equal(t, uint32(99), got)
}

func TestServiceSubmitRejectsBadInput(t *testing.T) {
	scheme, err := fhe.NewDummyScheme()
	require.NoError(t, err)
	_, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	router := chi.NewRouter()
	NewService(scheme, key, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing callback", `{"handles":[]}`},
		{"bad handle", `{"handles":["zz"],"callback_url":"http://localhost/cb"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/submit", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
