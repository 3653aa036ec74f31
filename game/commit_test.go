package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
)

func testHandles(t *testing.T, values ...uint32) []fhe.Handle {
	t.Helper()
	scheme, err := fhe.NewDummyScheme()
	require.NoError(t, err)

	handles := make([]fhe.Handle, len(values))
	for i, v := range values {
		ct, err := scheme.Encrypt(v)
		require.NoError(t, err)
		handles[i] = ct.Handle()
	}
	return handles
}

func TestCommitmentDeterministic(t *testing.T) {
	instance := InstanceID{0x01}
	vector := testHandles(t, 42, 7, 42)

	first := ComputeCommitment(instance, vector)
	second := ComputeCommitment(instance, vector)
	require.Equal(t, first, second)
}

func TestCommitmentOrderSensitive(t *testing.T) {
	instance := InstanceID{0x01}
	vector := testHandles(t, 42, 7, 9)

	swapped := []fhe.Handle{vector[0], vector[2], vector[1]}
	require.NotEqual(t, ComputeCommitment(instance, vector), ComputeCommitment(instance, swapped))
}

func TestCommitmentInstanceSensitive(t *testing.T) {
	vector := testHandles(t, 42, 7)

	a := ComputeCommitment(InstanceID{0x01}, vector)
	b := ComputeCommitment(InstanceID{0x02}, vector)
	require.NotEqual(t, a, b)
}

func TestCanonicalVectorOrder(t *testing.T) {
	env := newTestEnv(t, 0, 0)

	opener := genKey(t)
	id, err := env.engine.Open(opener)
	require.NoError(t, err)

	secret := env.encrypt(t, 42)
	require.NoError(t, env.engine.SubmitSecret(opener, id, secret))

	p1, p2 := genKey(t), genKey(t)
	g1, g2 := env.encrypt(t, 1), env.encrypt(t, 2)
	require.NoError(t, env.engine.SubmitGuess(p1, id, g1))
	require.NoError(t, env.engine.SubmitGuess(p2, id, g2))

	// Resubmission by p1 replaces the ciphertext but not the position.
	g1b := env.encrypt(t, 3)
	require.NoError(t, env.engine.SubmitGuess(p1, id, g1b))

	b := env.engine.batches[id]
	vector := CanonicalVector(b)
	require.Equal(t, []fhe.Handle{secret.Handle(), g1b.Handle(), g2.Handle()}, vector)
}
