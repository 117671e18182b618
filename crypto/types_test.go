package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	data := []byte("order workflow message")
	sig, err := Sign(priv, data)
	require.NoError(t, err)

	require.True(t, sig.Verify(pub, data))
	require.False(t, sig.Verify(pub, []byte("tampered")))

	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, sig.Verify(otherPub, data))
}

func TestPrivateKeyPublicKey(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	derived, err := priv.PublicKey()
	require.NoError(t, err)
	require.Equal(t, pub.String(), derived.String())

	_, err = PrivateKey([]byte("short")).PublicKey()
	require.Error(t, err)
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	require.Equal(t, pub.Bytes(), parsed.Bytes())

	_, err = NewPublicKeyFromString("not-hex")
	require.Error(t, err)
}

func TestMaskSeedCopies(t *testing.T) {
	raw := []byte("test-seed-for-mask-derivation-00")
	seed := NewMaskSeed(raw)
	raw[0] = 'X'
	require.Equal(t, byte('t'), seed.Bytes()[0])
}
