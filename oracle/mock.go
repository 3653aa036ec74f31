package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

// Decryptor resolves a ciphertext handle to its cleartext value. The
// dummy scheme satisfies this; a real oracle would reach into the
// coprocessor's ciphertext database instead.
type Decryptor interface {
	DecryptHandle(h fhe.Handle) (uint32, error)
}

// CallbackFunc receives a decryption result. MockOracle invokes it in
// place of an HTTP callback.
type CallbackFunc func(id RequestID, cleartext, proof []byte) error

// MockOracle is an in-process oracle for tests and single-binary demos.
// Submit records the request; nothing happens until the test calls
// Deliver (or Redeliver, to exercise retransmission), which keeps the
// asynchronous gap between request and callback under test control.
type MockOracle struct {
	decryptor Decryptor
	signer    crypto.PrivateKey
	callback  CallbackFunc

	mu      sync.Mutex
	pending map[RequestID][]fhe.Handle
	results map[RequestID]*CallbackRequest
}

// NewMockOracle creates a mock oracle that signs results with key and
// delivers them through cb.
func NewMockOracle(decryptor Decryptor, key crypto.PrivateKey, cb CallbackFunc) *MockOracle {
	return &MockOracle{
		decryptor: decryptor,
		signer:    key,
		callback:  cb,
		pending:   make(map[RequestID][]fhe.Handle),
		results:   make(map[RequestID]*CallbackRequest),
	}
}

// PublicKey returns the key callers should verify proofs against.
func (o *MockOracle) PublicKey() (crypto.PublicKey, error) {
	return o.signer.PublicKey()
}

// Submit records a decryption request and returns a fresh request id.
// The callback designation is ignored: delivery goes through the
// registered CallbackFunc.
func (o *MockOracle) Submit(_ context.Context, handles []fhe.Handle, _ string) (RequestID, error) {
	id := RequestID(uuid.NewString())

	vector := make([]fhe.Handle, len(handles))
	copy(vector, handles)

	o.mu.Lock()
	o.pending[id] = vector
	o.mu.Unlock()

	return id, nil
}

// Deliver decrypts the pending request and invokes the callback with the
// signed result. The result is retained so Redeliver can replay it.
func (o *MockOracle) Deliver(id RequestID) error {
	o.mu.Lock()
	handles, ok := o.pending[id]
	delete(o.pending, id)
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending request %s", id)
	}

	values := make([]uint32, len(handles))
	for i, h := range handles {
		v, err := o.decryptor.DecryptHandle(h)
		if err != nil {
			return fmt.Errorf("decrypting handle %s: %w", h, err)
		}
		values[i] = v
	}

	cleartext := EncodeCleartext(values)
	proof, err := SignResult(o.signer, id, cleartext)
	if err != nil {
		return fmt.Errorf("signing result: %w", err)
	}

	result := &CallbackRequest{RequestID: id, Cleartext: cleartext, Proof: proof}
	o.mu.Lock()
	o.results[id] = result
	o.mu.Unlock()

	return o.callback(id, cleartext, proof)
}

// Redeliver replays a previously delivered result, simulating oracle-side
// retransmission.
func (o *MockOracle) Redeliver(id RequestID) error {
	o.mu.Lock()
	result, ok := o.results[id]
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("no delivered result for request %s", id)
	}
	return o.callback(id, result.Cleartext, result.Proof)
}

// DeliverAll delivers every pending request. Delivery order is not
// guaranteed; callers that care about ordering deliver ids explicitly.
func (o *MockOracle) DeliverAll() error {
	o.mu.Lock()
	ids := make([]RequestID, 0, len(o.pending))
	for id := range o.pending {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if err := o.Deliver(id); err != nil {
			return err
		}
	}
	return nil
}

// PendingVector returns the handle vector recorded for a pending request.
// Test hook.
func (o *MockOracle) PendingVector(id RequestID) ([]fhe.Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.pending[id]
	return v, ok
}
