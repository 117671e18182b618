package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choosek/tinybook/crypto"
)

type testPayload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestSignedRecover(t *testing.T) {
	_, privkey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privkey, &testPayload{Name: "node-0", Value: 7})
	require.NoError(t, err)

	obj, pubkey, err := signed.Recover()
	require.NoError(t, err)
	require.Equal(t, "node-0", obj.Name)
	require.Equal(t, 7, obj.Value)

	expected, err := privkey.PublicKey()
	require.NoError(t, err)
	require.Equal(t, expected, pubkey)
}

func TestSignedRecoverDetectsTampering(t *testing.T) {
	_, privkey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privkey, &testPayload{Name: "node-0", Value: 7})
	require.NoError(t, err)

	signed.Object.Value = 8
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedRoundTripsThroughJSON(t *testing.T) {
	_, privkey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privkey, &testPayload{Name: "node-0", Value: 7})
	require.NoError(t, err)

	data, err := SerializeMessage(signed)
	require.NoError(t, err)

	decoded, err := UnmarshalMessage[Signed[testPayload]](data)
	require.NoError(t, err)

	obj, _, err := decoded.Recover()
	require.NoError(t, err)
	require.Equal(t, signed.Object, obj)
}

func TestUnsafeObjectSkipsVerification(t *testing.T) {
	_, privkey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privkey, &testPayload{Name: "node-0", Value: 7})
	require.NoError(t, err)

	signed.Signature = crypto.Signature{}
	require.Equal(t, 7, signed.UnsafeObject().Value)
}
