package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
	ErrMissingAccount       = errors.New("instruction is missing an account")
)

// AccountMeta represents the account information required
// for building transactions.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// Account returns the account meta at the provided index.
func (i Instruction) Account(index int) (AccountMeta, error) {
	if index < 0 || index >= len(i.Accounts) {
		return AccountMeta{}, ErrMissingAccount
	}
	return i.Accounts[index], nil
}

// SignedBy reports whether the instruction carries a signer meta for the
// provided key.
func (i Instruction) SignedBy(key ed25519.PublicKey) bool {
	for _, meta := range i.Accounts {
		if meta.IsSigner && bytes.Equal(meta.PublicKey, key) {
			return true
		}
	}
	return false
}

// Message returns the bytes an instruction submitter signs over: the program,
// the instruction data, every account key in order and a nonce that makes the
// submission unique.
func (i Instruction) Message(nonce []byte) []byte {
	var buf bytes.Buffer
	buf.Write(i.Program)
	buf.Write(i.Data)
	for _, meta := range i.Accounts {
		buf.Write(meta.PublicKey)
	}
	buf.Write(nonce)
	return buf.Bytes()
}
