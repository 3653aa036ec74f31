package fhe

import (
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"
)

// HandleSize is the byte length of a ciphertext content identifier.
const HandleSize = 32

// Handle is the stable content identifier of a ciphertext: the blake3
// hash of its payload. Two handles are equal exactly when the underlying
// ciphertext bytes are identical, which is what makes handles usable as
// commitment inputs and oracle lookup keys.
type Handle [HandleSize]byte

// NewHandleFromString parses a hex-encoded handle.
func NewHandleFromString(data string) (Handle, error) {
	var h Handle
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return h, err
	}
	if len(rawBytes) != HandleSize {
		return h, errors.New("invalid handle size")
	}
	copy(h[:], rawBytes)
	return h, nil
}

// Bytes returns the handle as a byte slice.
func (h Handle) Bytes() []byte {
	return h[:]
}

// String returns the hex encoding of the handle.
func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the handle is the zero value, i.e. no ciphertext
// has been bound.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Ciphertext is an opaque encrypted 32-bit integer. The payload is
// whatever the external encryption scheme produced; the core only ever
// hashes it and forwards it.
type Ciphertext struct {
	payload []byte
	handle  Handle
}

// NewCiphertext wraps raw ciphertext bytes. The payload is copied and the
// content identifier computed once up front.
func NewCiphertext(payload []byte) (Ciphertext, error) {
	if len(payload) == 0 {
		return Ciphertext{}, errors.New("empty ciphertext payload")
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	return Ciphertext{
		payload: data,
		handle:  Handle(blake3.Sum256(data)),
	}, nil
}

// Handle returns the ciphertext's stable content identifier.
func (c Ciphertext) Handle() Handle {
	return c.handle
}

// Bytes returns the raw ciphertext payload for inclusion in a decryption
// request.
func (c Ciphertext) Bytes() []byte {
	return c.payload
}

// IsZero reports whether the ciphertext is the unset zero value.
func (c Ciphertext) IsZero() bool {
	return len(c.payload) == 0
}

// ModelVersion tags a generation of encryption parameters. Handles minted
// under one version are not guaranteed to decrypt under another, so the
// core captures the version at batch open time and refuses secret
// submission after the parameters have rotated.
type ModelVersion uint32
