package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
)

func newTestKey(t *testing.T) crypto.PublicKey {
	t.Helper()
	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return pub
}

func TestPauseSwitch(t *testing.T) {
	r := NewRegistry(0)
	require.False(t, r.IsPaused())

	r.SetPaused(true)
	require.True(t, r.IsPaused())

	r.SetPaused(false)
	require.False(t, r.IsPaused())
}

func TestOpenerAllowlist(t *testing.T) {
	alice := newTestKey(t)
	bob := newTestKey(t)

	// No allowlist: everyone opens.
	open := NewRegistry(0)
	require.True(t, open.IsAuthorizedOpener(alice))
	require.True(t, open.IsAuthorizedOpener(bob))

	restricted := NewRegistry(0, WithOpeners([]crypto.PublicKey{alice}))
	require.True(t, restricted.IsAuthorizedOpener(alice))
	require.False(t, restricted.IsAuthorizedOpener(bob))

	restricted.AddOpener(bob)
	require.True(t, restricted.IsAuthorizedOpener(bob))

	// The first AddOpener on an open registry closes it down to the
	// explicit list.
	open.AddOpener(alice)
	require.True(t, open.IsAuthorizedOpener(alice))
	require.False(t, open.IsAuthorizedOpener(bob))
}

func TestCooldown(t *testing.T) {
	alice := newTestKey(t)
	bob := newTestKey(t)

	now := time.Unix(1700000000, 0)
	r := NewRegistry(10*time.Second, WithClock(func() time.Time { return now }))

	// No recorded action yet.
	require.True(t, r.CooldownElapsed(alice))

	r.RecordAction(alice)
	require.False(t, r.CooldownElapsed(alice))
	require.True(t, r.CooldownElapsed(bob))

	now = now.Add(9 * time.Second)
	require.False(t, r.CooldownElapsed(alice))

	now = now.Add(time.Second)
	require.True(t, r.CooldownElapsed(alice))
}

func TestZeroCooldownAlwaysElapsed(t *testing.T) {
	alice := newTestKey(t)
	r := NewRegistry(0)
	r.RecordAction(alice)
	require.True(t, r.CooldownElapsed(alice))
}
