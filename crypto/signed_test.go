package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	BatchID uint64 `json:"batch_id"`
	Note    string `json:"note"`
}

func TestSignedRoundTrip(t *testing.T) {
	pub, key, err := GenerateKeyPair()
	require.NoError(t, err)

	obj := &payload{BatchID: 7, Note: "open"}
	signed, err := NewSigned(key, obj)
	require.NoError(t, err)

	got, signer, err := signed.Recover()
	require.NoError(t, err)
	require.Equal(t, obj, got)
	require.True(t, pub.Equal(signer))
}

func TestSignedRejectsTampering(t *testing.T) {
	_, key, err := GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(key, &payload{BatchID: 7})
	require.NoError(t, err)

	signed.Object.BatchID = 8
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedRejectsKeySwap(t *testing.T) {
	_, key, err := GenerateKeyPair()
	require.NoError(t, err)
	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(key, &payload{BatchID: 7})
	require.NoError(t, err)

	// The signature binds the signer's key, so replanting it under
	// another identity fails even with the object untouched.
	signed.PublicKey = otherPub
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedEmptyObject(t *testing.T) {
	var signed Signed[payload]
	_, _, err := signed.Recover()
	require.Error(t, err)
}

func TestSignatureVerify(t *testing.T) {
	pub, key, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("true name")
	sig, err := Sign(key, msg)
	require.NoError(t, err)

	require.True(t, sig.Verify(pub, msg))
	require.False(t, sig.Verify(pub, []byte("false name")))

	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, sig.Verify(otherPub, msg))
}

func TestKeyStringRoundTrip(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	require.True(t, pub.Equal(parsed))

	_, err = NewPublicKeyFromString("not hex")
	require.Error(t, err)
}
