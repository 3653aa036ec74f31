package fhe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDummySchemeRoundTrip(t *testing.T) {
	s, err := NewDummyScheme()
	require.NoError(t, err)

	for _, v := range []uint32{0, 1, 42, 0xFFFFFFFF} {
		ct, err := s.Encrypt(v)
		require.NoError(t, err)
		require.False(t, ct.IsZero())

		got, err := s.Decrypt(ct)
		require.NoError(t, err)
		require.Equal(t, v, got)

		got, err = s.DecryptHandle(ct.Handle())
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestDummySchemeFreshCiphertexts(t *testing.T) {
	s, err := NewDummyScheme()
	require.NoError(t, err)

	// Equal values still mint distinct ciphertexts.
	a, err := s.Encrypt(42)
	require.NoError(t, err)
	b, err := s.Encrypt(42)
	require.NoError(t, err)
	require.NotEqual(t, a.Handle(), b.Handle())
}

func TestDummySchemeUnknownHandle(t *testing.T) {
	s, err := NewDummyScheme()
	require.NoError(t, err)

	foreign, err := NewCiphertext([]byte("never minted here"))
	require.NoError(t, err)

	_, err = s.Lookup(foreign.Handle())
	require.Error(t, err)
	_, err = s.DecryptHandle(foreign.Handle())
	require.Error(t, err)
}

func TestHandleIsContentAddressed(t *testing.T) {
	a, err := NewCiphertext([]byte{1, 2, 3})
	require.NoError(t, err)
	b, err := NewCiphertext([]byte{1, 2, 3})
	require.NoError(t, err)
	c, err := NewCiphertext([]byte{1, 2, 4})
	require.NoError(t, err)

	require.Equal(t, a.Handle(), b.Handle())
	require.NotEqual(t, a.Handle(), c.Handle())

	parsed, err := NewHandleFromString(a.Handle().String())
	require.NoError(t, err)
	require.Equal(t, a.Handle(), parsed)

	_, err = NewHandleFromString("not hex")
	require.Error(t, err)
}
