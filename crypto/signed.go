package crypto

import (
	"encoding/json"
	"errors"
)

// Signed wraps a request body with an Ed25519 signature. The HTTP layer
// decodes a Signed envelope, recovers the signer, and passes that identity
// to the game core as the caller. Signing covers the serialized object
// concatenated with the signer's public key, so a signature cannot be
// replanted under a different identity.
type Signed[T any] struct {
	PublicKey PublicKey `json:"public_key"`
	Signature Signature `json:"signature"`
	Object    *T        `json:"object"`
}

// NewSigned creates an authenticated envelope by signing the serialized
// object together with the signer's public key.
func NewSigned[T any](privkey PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.PublicKey()
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	signature, err := Sign(privkey, append(serialized, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		PublicKey: pubkey,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the object along with the
// authenticated signer.
func (s *Signed[T]) Recover() (*T, PublicKey, error) {
	if s.Object == nil {
		return nil, nil, errors.New("empty signed object")
	}

	serialized, err := json.Marshal(s.Object)
	if err != nil {
		return nil, nil, err
	}

	if !s.Signature.Verify(s.PublicKey, append(serialized, s.PublicKey...)) {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}
