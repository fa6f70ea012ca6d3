package ledger

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/solana/token"
)

// The functions in this file apply token program semantics to a bank.Tx, so
// other programs can move tokens as part of their own atomic execution.

// GetTokenAccount loads a token account within the Tx. A missing account
// returns account.ErrAccountNotFound.
func GetTokenAccount(tx *bank.Tx, key ed25519.PublicKey) (*token.Account, error) {
	record, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	return unmarshalTokenAccount(record)
}

// GetMint loads a mint within the Tx. A missing mint returns
// account.ErrAccountNotFound.
func GetMint(tx *bank.Tx, key ed25519.PublicKey) (*token.Mint, error) {
	record, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	return unmarshalMint(record)
}

// InitializeMint creates a mint without a freeze authority.
func InitializeMint(tx *bank.Tx, payer, mint, mintAuthority ed25519.PublicKey, decimals uint8) error {
	state := &token.Mint{
		MintAuthority: mintAuthority,
		Decimals:      decimals,
		IsInitialized: true,
	}

	err := tx.Create(payer, mint, token.ProgramKey, state.Marshal())
	if err == bank.ErrAccountAlreadyExists {
		return token.ErrorAlreadyInUse
	}
	return err
}

// InitializeAccount creates a token account at address holding tokens of the
// provided mint on behalf of owner. The owner may be a program derived address.
func InitializeAccount(tx *bank.Tx, payer, address, mint, owner ed25519.PublicKey) error {
	if _, err := GetMint(tx, mint); err == account.ErrAccountNotFound || err == ErrInvalidMint {
		return token.ErrorInvalidMint
	} else if err != nil {
		return err
	}

	state := &token.Account{
		Mint:  mint,
		Owner: owner,
		State: token.AccountStateInitialized,
	}

	err := tx.Create(payer, address, token.ProgramKey, state.Marshal())
	if err == bank.ErrAccountAlreadyExists {
		return token.ErrorAlreadyInUse
	}
	return err
}

// CreateAssociatedAccount creates the associated token account for the wallet
// and mint.
func CreateAssociatedAccount(tx *bank.Tx, payer, wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	address, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving associated account")
	}

	if err := InitializeAccount(tx, payer, address, mint, wallet); err != nil {
		return nil, err
	}
	return address, nil
}

// MintTo mints new tokens into dest.
func MintTo(tx *bank.Tx, mint, dest, mintAuthority ed25519.PublicKey, amount uint64) error {
	mintState, err := GetMint(tx, mint)
	if err == account.ErrAccountNotFound || err == ErrInvalidMint {
		return token.ErrorInvalidMint
	} else if err != nil {
		return err
	}

	destState, err := getInitializedAccount(tx, dest)
	if err != nil {
		return err
	}

	if !bytes.Equal(destState.Mint, mint) {
		return token.ErrorMintMismatch
	}
	if len(mintState.MintAuthority) == 0 || !bytes.Equal(mintState.MintAuthority, mintAuthority) {
		return token.ErrorOwnerMismatch
	}
	if mintState.Supply > math.MaxUint64-amount || destState.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	mintState.Supply += amount
	destState.Amount += amount

	if err := putMint(tx, mint, mintState); err != nil {
		return err
	}
	return putTokenAccount(tx, dest, destState)
}

// Transfer moves amount tokens from source to dest. The authority must be the
// source account's owner.
func Transfer(tx *bank.Tx, source, dest, authority ed25519.PublicKey, amount uint64) error {
	sourceState, err := getInitializedAccount(tx, source)
	if err != nil {
		return err
	}

	destState, err := getInitializedAccount(tx, dest)
	if err != nil {
		return err
	}

	if !bytes.Equal(sourceState.Mint, destState.Mint) {
		return token.ErrorMintMismatch
	}
	if !bytes.Equal(sourceState.Owner, authority) {
		return token.ErrorOwnerMismatch
	}
	if sourceState.Amount < amount {
		return token.ErrorInsufficientFunds
	}

	if bytes.Equal(source, dest) {
		return nil
	}

	if destState.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	sourceState.Amount -= amount
	destState.Amount += amount

	if err := putTokenAccount(tx, source, sourceState); err != nil {
		return err
	}
	return putTokenAccount(tx, dest, destState)
}

// CloseAccount closes an empty token account, moving its lamports to dest.
func CloseAccount(tx *bank.Tx, address, dest, authority ed25519.PublicKey) error {
	state, err := getInitializedAccount(tx, address)
	if err != nil {
		return err
	}

	if state.Amount != 0 {
		return token.ErrorNonNativeHasBalance
	}

	closeAuthority := state.Owner
	if len(state.CloseAuthority) > 0 {
		closeAuthority = state.CloseAuthority
	}
	if !bytes.Equal(closeAuthority, authority) {
		return token.ErrorOwnerMismatch
	}

	return tx.Close(address, dest)
}

func getInitializedAccount(tx *bank.Tx, key ed25519.PublicKey) (*token.Account, error) {
	state, err := GetTokenAccount(tx, key)
	if err == account.ErrAccountNotFound || err == ErrInvalidTokenAccount {
		return nil, token.ErrorUninitializedState
	} else if err != nil {
		return nil, err
	}

	switch state.State {
	case token.AccountStateInitialized:
		return state, nil
	case token.AccountStateFrozen:
		return nil, token.ErrorAccountFrozen
	default:
		return nil, token.ErrorUninitializedState
	}
}

func putTokenAccount(tx *bank.Tx, key ed25519.PublicKey, state *token.Account) error {
	record, err := tx.Get(key)
	if err != nil {
		return err
	}
	record.Data = state.Marshal()
	return tx.Update(record)
}

func putMint(tx *bank.Tx, key ed25519.PublicKey, state *token.Mint) error {
	record, err := tx.Get(key)
	if err != nil {
		return err
	}
	record.Data = state.Marshal()
	return tx.Update(record)
}

func unmarshalTokenAccount(record *account.Record) (*token.Account, error) {
	if !record.IsOwnedBy(token.ProgramKey) {
		return nil, ErrInvalidTokenAccount
	}

	var state token.Account
	if !state.Unmarshal(record.Data) {
		return nil, ErrInvalidTokenAccount
	}
	return &state, nil
}

func unmarshalMint(record *account.Record) (*token.Mint, error) {
	if !record.IsOwnedBy(token.ProgramKey) {
		return nil, ErrInvalidMint
	}

	var state token.Mint
	if !state.Unmarshal(record.Data) || !state.IsInitialized {
		return nil, ErrInvalidMint
	}
	return &state, nil
}
