package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func NewRandomKey(t *testing.T) ed25519.PublicKey {
	return NewRandomPrivateKey(t).Public().(ed25519.PublicKey)
}

func NewRandomPrivateKey(t *testing.T) ed25519.PrivateKey {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return private
}
