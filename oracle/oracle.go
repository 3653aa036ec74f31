package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

// RequestID identifies a decryption request. It is assigned by the oracle
// on submission and assumed globally unique.
type RequestID string

// Oracle accepts decryption requests. Submit returns synchronously with a
// request id while the decryption itself runs asynchronously; the result
// arrives later through the callback designated by callbackURL.
type Oracle interface {
	Submit(ctx context.Context, handles []fhe.Handle, callbackURL string) (RequestID, error)
}

// Verifier checks the proof accompanying a decryption result. A non-nil
// error is a hard failure: the result must not be applied.
type Verifier interface {
	Verify(id RequestID, cleartext, proof []byte) error
}

// CallbackRequest is the wire form of the oracle's asynchronous response.
type CallbackRequest struct {
	RequestID RequestID `json:"request_id"`
	Cleartext []byte    `json:"cleartext"`
	Proof     []byte    `json:"proof"`
}

// proofDigest binds a proof to both the request id and the exact
// cleartext bytes, so neither can be swapped under the other.
func proofDigest(id RequestID, cleartext []byte) []byte {
	h := sha3.New256()
	h.Write([]byte(id))
	h.Write(cleartext)
	return h.Sum(nil)
}

// SignResult produces the proof for a decryption result. Used by oracle
// implementations.
func SignResult(key crypto.PrivateKey, id RequestID, cleartext []byte) (crypto.Signature, error) {
	return crypto.Sign(key, proofDigest(id, cleartext))
}

// Ed25519Verifier verifies proofs as oracle signatures over the request
// id and cleartext.
type Ed25519Verifier struct {
	OraclePublicKey crypto.PublicKey
}

// Verify checks proof against cleartext and id under the oracle's key.
func (v *Ed25519Verifier) Verify(id RequestID, cleartext, proof []byte) error {
	if !crypto.Signature(proof).Verify(v.OraclePublicKey, proofDigest(id, cleartext)) {
		return errors.New("oracle proof signature invalid")
	}
	return nil
}

// ValueWidth is the byte width of one cleartext value: decrypted values
// are 32-bit integers encoded big-endian.
const ValueWidth = 4

// EncodeCleartext packs values into the fixed-width wire encoding, in the
// order given.
func EncodeCleartext(values []uint32) []byte {
	out := make([]byte, ValueWidth*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(out[i*ValueWidth:], v)
	}
	return out
}

// DecodeCleartext unpacks a fixed-width cleartext vector. The byte length
// must be an exact multiple of the value width.
func DecodeCleartext(cleartext []byte) ([]uint32, error) {
	if len(cleartext)%ValueWidth != 0 {
		return nil, fmt.Errorf("cleartext length %d not a multiple of %d", len(cleartext), ValueWidth)
	}
	values := make([]uint32, len(cleartext)/ValueWidth)
	for i := range values {
		values[i] = binary.BigEndian.Uint32(cleartext[i*ValueWidth:])
	}
	return values, nil
}
