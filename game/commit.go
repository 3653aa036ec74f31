package game

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

// InstanceID identifies one deployment of the system. It is folded into
// every commitment so a commitment computed for one deployment cannot be
// replayed against another.
type InstanceID [32]byte

// NewInstanceIDFromString parses a hex-encoded instance id.
func NewInstanceIDFromString(data string) (InstanceID, error) {
	var id InstanceID
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return id, err
	}
	copy(id[:], rawBytes)
	return id, nil
}

// String returns the hex encoding of the instance id.
func (id InstanceID) String() string {
	return hex.EncodeToString(id[:])
}

// Commitment is a hash binding a decryption request to an exact ordered
// snapshot of ciphertext handles. It is computed at request time, stored
// on the decryption context, re-derived from current state at callback
// time, and the two must be bit-identical for the result to apply.
type Commitment [32]byte

// String returns the hex encoding of the commitment.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// CanonicalVector derives the ordered ciphertext-handle vector for a
// batch: the secret first, then each guess in the order its participant
// was first inserted. Pure and deterministic; it is invoked once at
// request time and once at callback time.
func CanonicalVector(b *Batch) []fhe.Handle {
	guesses := b.Guesses()
	vector := make([]fhe.Handle, 0, 1+len(guesses))
	vector = append(vector, b.Secret.Handle())
	for _, g := range guesses {
		vector = append(vector, g.Ciphertext.Handle())
	}
	return vector
}

// ComputeCommitment hashes the instance id and the handle vector with
// SHA3-256. Handles are fixed width, so plain concatenation is
// unambiguous.
func ComputeCommitment(instance InstanceID, vector []fhe.Handle) Commitment {
	h := sha3.New256()
	h.Write(instance[:])
	for _, handle := range vector {
		h.Write(handle.Bytes())
	}
	var c Commitment
	h.Sum(c[:0])
	return c
}
