package fhe

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
)

// DummyScheme is a stand-in for the external encryption service, used by
// tests and the demo deployment. It "encrypts" a uint32 by XORing it with
// a keystream derived from a per-scheme key and a random nonce, and keeps
// every ciphertext it minted so the mock oracle can look payloads up by
// handle, the way the real coprocessor resolves handles against its
// ciphertext database.
//
// It provides no security whatsoever and must never back a real game.
type DummyScheme struct {
	key [32]byte

	mu     sync.RWMutex
	minted map[Handle]Ciphertext
}

const dummyNonceSize = 16

// NewDummyScheme creates a scheme with a random key.
func NewDummyScheme() (*DummyScheme, error) {
	s := &DummyScheme{minted: make(map[Handle]Ciphertext)}
	if _, err := rand.Read(s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DummyScheme) pad(nonce []byte) uint32 {
	h := blake3.New()
	h.Write(s.key[:])
	h.Write(nonce)
	return binary.BigEndian.Uint32(h.Sum(nil)[:4])
}

// Encrypt produces a ciphertext for value and records it for later lookup.
// The payload layout is nonce || (value XOR pad).
func (s *DummyScheme) Encrypt(value uint32) (Ciphertext, error) {
	payload := make([]byte, dummyNonceSize+4)
	if _, err := rand.Read(payload[:dummyNonceSize]); err != nil {
		return Ciphertext{}, err
	}
	binary.BigEndian.PutUint32(payload[dummyNonceSize:], value^s.pad(payload[:dummyNonceSize]))

	ct, err := NewCiphertext(payload)
	if err != nil {
		return Ciphertext{}, err
	}

	s.mu.Lock()
	s.minted[ct.Handle()] = ct
	s.mu.Unlock()

	return ct, nil
}

// Decrypt recovers the cleartext value from a ciphertext produced by this
// scheme.
func (s *DummyScheme) Decrypt(ct Ciphertext) (uint32, error) {
	payload := ct.Bytes()
	if len(payload) != dummyNonceSize+4 {
		return 0, errors.New("malformed ciphertext payload")
	}
	return binary.BigEndian.Uint32(payload[dummyNonceSize:]) ^ s.pad(payload[:dummyNonceSize]), nil
}

// Lookup resolves a handle to the ciphertext this scheme minted for it.
func (s *DummyScheme) Lookup(h Handle) (Ciphertext, error) {
	s.mu.RLock()
	ct, ok := s.minted[h]
	s.mu.RUnlock()
	if !ok {
		return Ciphertext{}, fmt.Errorf("unknown ciphertext handle %s", h)
	}
	return ct, nil
}

// DecryptHandle resolves and decrypts in one step.
func (s *DummyScheme) DecryptHandle(h Handle) (uint32, error) {
	ct, err := s.Lookup(h)
	if err != nil {
		return 0, err
	}
	return s.Decrypt(ct)
}
