package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction_Message(t *testing.T) {
	program := newKey(t)
	first := newKey(t)
	second := newKey(t)

	ix := NewInstruction(program, []byte{1, 2, 3}, NewAccountMeta(first, true), NewReadonlyAccountMeta(second, false))

	message := ix.Message([]byte{9})
	assert.Equal(t, message, ix.Message([]byte{9}))
	assert.Len(t, message, 3*ed25519.PublicKeySize+4)

	// Each submission signs over its own nonce
	assert.NotEqual(t, message, ix.Message([]byte{8}))

	reordered := NewInstruction(program, []byte{1, 2, 3}, NewAccountMeta(second, true), NewReadonlyAccountMeta(first, false))
	assert.NotEqual(t, message, reordered.Message([]byte{9}))
}

func TestInstruction_SignedBy(t *testing.T) {
	signer := newKey(t)
	other := newKey(t)

	ix := NewInstruction(newKey(t), nil, NewAccountMeta(signer, true), NewAccountMeta(other, false))
	assert.True(t, ix.SignedBy(signer))
	assert.False(t, ix.SignedBy(other))

	_, err := ix.Account(2)
	assert.Equal(t, ErrMissingAccount, err)
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}
