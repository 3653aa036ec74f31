package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

// SubmitRequest is the wire form of a decryption request.
type SubmitRequest struct {
	Handles     []string `json:"handles"`
	CallbackURL string   `json:"callback_url"`
}

// SubmitResponse acknowledges a request with its assigned id.
type SubmitResponse struct {
	RequestID RequestID `json:"request_id"`
}

// PublicKeyResponse carries the oracle's proof-signing key.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// EncryptRequest asks the demo oracle to mint a ciphertext. Only the
// dummy scheme supports this; a real coprocessor encrypts client-side.
type EncryptRequest struct {
	Value uint32 `json:"value"`
}

// EncryptResponse carries the minted ciphertext payload.
type EncryptResponse struct {
	Payload []byte `json:"payload"`
}

// Client submits decryption requests to a remote oracle service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an oracle client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit posts the handle vector and callback designation to the oracle
// and returns the assigned request id.
func (c *Client) Submit(ctx context.Context, handles []fhe.Handle, callbackURL string) (RequestID, error) {
	submitReq := SubmitRequest{
		Handles:     make([]string, len(handles)),
		CallbackURL: callbackURL,
	}
	for i, h := range handles {
		submitReq.Handles[i] = h.String()
	}

	body, err := json.Marshal(submitReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting to oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var submitResp SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("decoding oracle response: %w", err)
	}
	return submitResp.RequestID, nil
}

// Encrypt asks the demo oracle to mint a ciphertext for value.
func (c *Client) Encrypt(ctx context.Context, value uint32) (fhe.Ciphertext, error) {
	body, err := json.Marshal(EncryptRequest{Value: value})
	if err != nil {
		return fhe.Ciphertext{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/encrypt", bytes.NewReader(body))
	if err != nil {
		return fhe.Ciphertext{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("encrypting via oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fhe.Ciphertext{}, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var encResp EncryptResponse
	if err := json.NewDecoder(resp.Body).Decode(&encResp); err != nil {
		return fhe.Ciphertext{}, err
	}
	return fhe.NewCiphertext(encResp.Payload)
}

// FetchPublicKey retrieves the oracle's proof-signing key.
func (c *Client) FetchPublicKey(ctx context.Context) (crypto.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/public-key", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var keyResp PublicKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&keyResp); err != nil {
		return nil, err
	}
	return crypto.NewPublicKeyFromString(keyResp.PublicKey)
}

// Service exposes a decryption oracle over HTTP. It decrypts dummy-scheme
// ciphertexts, signs the result, and POSTs it to the callback URL named
// in the request. It also mints ciphertexts on demand so demo players can
// encrypt against its scheme. Strictly a test and demo facility.
type Service struct {
	scheme *fhe.DummyScheme
	signer crypto.PrivateKey
	log    *slog.Logger

	httpClient *http.Client
}

// NewService creates an oracle service over scheme.
func NewService(scheme *fhe.DummyScheme, key crypto.PrivateKey, log *slog.Logger) *Service {
	return &Service{
		scheme:     scheme,
		signer:     key,
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterRoutes registers the oracle's HTTP routes.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Post("/submit", s.handleSubmit)
	r.Post("/encrypt", s.handleEncrypt)
	r.Get("/public-key", s.handlePublicKey)
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var submitReq SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&submitReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if submitReq.CallbackURL == "" {
		http.Error(w, "missing callback_url", http.StatusBadRequest)
		return
	}

	handles := make([]fhe.Handle, len(submitReq.Handles))
	for i, raw := range submitReq.Handles {
		h, err := fhe.NewHandleFromString(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid handle at index %d", i), http.StatusBadRequest)
			return
		}
		handles[i] = h
	}

	id := RequestID(uuid.NewString())

	// The decryption round trip is asynchronous: acknowledge now, call
	// back whenever the work completes.
	go s.process(id, handles, submitReq.CallbackURL)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SubmitResponse{RequestID: id})
}

func (s *Service) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var encReq EncryptRequest
	if err := json.NewDecoder(r.Body).Decode(&encReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ct, err := s.scheme.Encrypt(encReq.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EncryptResponse{Payload: ct.Bytes()})
}

func (s *Service) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pubKey, err := s.signer.PublicKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PublicKeyResponse{PublicKey: pubKey.String()})
}

func (s *Service) process(id RequestID, handles []fhe.Handle, callbackURL string) {
	values := make([]uint32, len(handles))
	for i, h := range handles {
		v, err := s.scheme.DecryptHandle(h)
		if err != nil {
			s.log.Error("Decryption failed, request abandoned", "requestID", id, "err", err)
			return
		}
		values[i] = v
	}

	cleartext := EncodeCleartext(values)
	proof, err := SignResult(s.signer, id, cleartext)
	if err != nil {
		s.log.Error("Signing result failed", "requestID", id, "err", err)
		return
	}

	body, _ := json.Marshal(CallbackRequest{RequestID: id, Cleartext: cleartext, Proof: proof})
	resp, err := s.httpClient.Post(callbackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Error("Callback delivery failed", "requestID", id, "err", err)
		return
	}
	resp.Body.Close()

	s.log.Info("Delivered decryption result", "requestID", id, "values", len(values), "status", resp.StatusCode)
}
