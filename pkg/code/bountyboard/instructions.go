package bountyboard

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/ledger"
	"github.com/code-payments/bounty-board/pkg/solana"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
)

func (p *Processor) initializeBoard(ctx context.Context, ix solana.Instruction) error {
	accounts, args, err := bountyboard_program.DecompileInitializeBoardInstruction(ix)
	if err != nil {
		return err
	}

	if !ix.SignedBy(accounts.Authority) {
		return bountyboard_program.ErrUnauthorized
	}

	boardAddress, boardBump, err := bountyboard_program.GetBoardAddress(&bountyboard_program.GetBoardAddressArgs{
		BoardId: args.BoardId,
	})
	if err != nil {
		return errors.Wrap(err, "error deriving board address")
	}
	if err := checkAddress(accounts.Board, boardAddress); err != nil {
		return err
	}

	keys := []ed25519.PublicKey{accounts.Board, accounts.AcceptedMint, accounts.Authority}
	return p.bank.Execute(ctx, keys, func(tx *bank.Tx) error {
		exists, err := tx.Exists(accounts.Board)
		if err != nil {
			return err
		} else if exists {
			return bountyboard_program.ErrAlreadyInitialized
		}

		if _, err := ledger.GetMint(tx, accounts.AcceptedMint); err != nil {
			if err == ledger.ErrInvalidMint {
				return bountyboard_program.ErrNotFound
			}
			return toProgramError(err)
		}

		board := &bountyboard_program.BoardAccount{
			Authority:    accounts.Authority,
			BoardId:      args.BoardId,
			AcceptedMint: accounts.AcceptedMint,
			Bump:         boardBump,
		}
		if err := tx.Create(accounts.Authority, accounts.Board, bountyboard_program.PROGRAM_ID, board.Marshal()); err != nil {
			return toProgramError(err)
		}

		p.emitOnCommit(ctx, tx, &Event{
			Type:      EventTypeBoardInitialized,
			BoardId:   args.BoardId,
			Board:     accounts.Board,
			Authority: accounts.Authority,
		})
		return nil
	})
}

func (p *Processor) initializeBounty(ctx context.Context, ix solana.Instruction) error {
	accounts, args, err := bountyboard_program.DecompileInitializeBountyInstruction(ix)
	if err != nil {
		return err
	}

	if !ix.SignedBy(accounts.Authority) {
		return bountyboard_program.ErrUnauthorized
	}

	boardAddress, bountyAddress, vaultAddress, bountyBump, vaultBump, err := deriveAddresses(args.BoardId, args.BountyNumber)
	if err != nil {
		return err
	}
	for _, check := range [][2]ed25519.PublicKey{
		{accounts.Board, boardAddress},
		{accounts.Bounty, bountyAddress},
		{accounts.BountyVault, vaultAddress},
	} {
		if err := checkAddress(check[0], check[1]); err != nil {
			return err
		}
	}

	keys := []ed25519.PublicKey{accounts.Board, accounts.Bounty, accounts.AcceptedMint, accounts.BountyVault, accounts.Authority}
	return p.bank.Execute(ctx, keys, func(tx *bank.Tx) error {
		board, err := loadBoard(tx, accounts.Board)
		if err != nil {
			return err
		}

		if !bytes.Equal(accounts.AcceptedMint, board.AcceptedMint) {
			return bountyboard_program.ErrMintMismatch
		}

		exists, err := tx.Exists(accounts.Bounty)
		if err != nil {
			return err
		} else if exists {
			return bountyboard_program.ErrAlreadyInitialized
		}

		bounty := &bountyboard_program.BountyAccount{
			Board:        accounts.Board,
			BountyNumber: args.BountyNumber,
			Bump:         bountyBump,
			VaultBump:    vaultBump,
		}
		if err := tx.Create(accounts.Authority, accounts.Bounty, bountyboard_program.PROGRAM_ID, bounty.Marshal()); err != nil {
			return toProgramError(err)
		}

		// The vault's token authority is the board, so only this program can
		// move funds out of it.
		err = ledger.InitializeAccount(tx, accounts.Authority, accounts.BountyVault, board.AcceptedMint, accounts.Board)
		if err != nil {
			return toProgramError(err)
		}

		p.emitOnCommit(ctx, tx, &Event{
			Type:         EventTypeBountyInitialized,
			BoardId:      args.BoardId,
			BountyNumber: args.BountyNumber,
			Board:        accounts.Board,
			Bounty:       accounts.Bounty,
			Authority:    accounts.Authority,
		})
		return nil
	})
}

func (p *Processor) deposit(ctx context.Context, ix solana.Instruction) error {
	accounts, args, err := bountyboard_program.DecompileDepositInstruction(ix)
	if err != nil {
		return err
	}

	if args.Amount == 0 {
		return bountyboard_program.ErrInvalidArgument
	}

	if !ix.SignedBy(accounts.Authority) {
		return bountyboard_program.ErrUnauthorized
	}

	boardAddress, bountyAddress, vaultAddress, _, _, err := deriveAddresses(args.BoardId, args.BountyNumber)
	if err != nil {
		return err
	}
	for _, check := range [][2]ed25519.PublicKey{
		{accounts.Board, boardAddress},
		{accounts.Bounty, bountyAddress},
		{accounts.BountyVault, vaultAddress},
	} {
		if err := checkAddress(check[0], check[1]); err != nil {
			return err
		}
	}
	if bytes.Equal(accounts.SponsorVault, accounts.BountyVault) {
		return bountyboard_program.ErrInvalidArgument
	}

	keys := []ed25519.PublicKey{accounts.Board, accounts.Bounty, accounts.BountyVault, accounts.SponsorVault, accounts.Authority}
	return p.bank.Execute(ctx, keys, func(tx *bank.Tx) error {
		board, err := loadBoard(tx, accounts.Board)
		if err != nil {
			return err
		}

		record, bounty, err := loadBounty(tx, accounts.Bounty)
		if err != nil {
			return err
		}

		if bounty.IsClosed {
			return bountyboard_program.ErrBountyClosed
		}

		sponsorVault, err := loadTokenAccount(tx, accounts.SponsorVault)
		if err != nil {
			return err
		}
		if !bytes.Equal(sponsorVault.Mint, board.AcceptedMint) {
			return bountyboard_program.ErrMintMismatch
		}
		if !bytes.Equal(sponsorVault.Owner, accounts.Authority) {
			return bountyboard_program.ErrUnauthorized
		}

		if bounty.Total > math.MaxUint64-args.Amount {
			return bountyboard_program.ErrInvalidArgument
		}

		err = ledger.Transfer(tx, accounts.SponsorVault, accounts.BountyVault, accounts.Authority, args.Amount)
		if err != nil {
			return toProgramError(err)
		}

		bounty.Total += args.Amount

		record.Data = bounty.Marshal()
		if err := tx.Update(record); err != nil {
			return err
		}

		p.emitOnCommit(ctx, tx, &Event{
			Type:         EventTypeDeposited,
			BoardId:      args.BoardId,
			BountyNumber: args.BountyNumber,
			Board:        accounts.Board,
			Bounty:       accounts.Bounty,
			Authority:    accounts.Authority,
			Amount:       args.Amount,
			Total:        bounty.Total,
		})
		return nil
	})
}

func (p *Processor) closeBounty(ctx context.Context, ix solana.Instruction) error {
	accounts, args, err := bountyboard_program.DecompileCloseBountyInstruction(ix)
	if err != nil {
		return err
	}

	if args.BountyHunter == nil || !isValidBountyHunter(*args.BountyHunter) {
		return bountyboard_program.ErrInvalidArgument
	}
	hunter := *args.BountyHunter

	boardAddress, bountyAddress, _, _, _, err := deriveAddresses(args.BoardId, args.BountyNumber)
	if err != nil {
		return err
	}
	if err := checkAddress(accounts.Board, boardAddress); err != nil {
		return err
	}
	if err := checkAddress(accounts.Bounty, bountyAddress); err != nil {
		return err
	}

	keys := []ed25519.PublicKey{accounts.Board, accounts.Bounty}
	return p.bank.Execute(ctx, keys, func(tx *bank.Tx) error {
		board, err := loadBoard(tx, accounts.Board)
		if err != nil {
			return err
		}

		record, bounty, err := loadBounty(tx, accounts.Bounty)
		if err != nil {
			return err
		}

		if !ix.SignedBy(accounts.Authority) || !bytes.Equal(accounts.Authority, board.Authority) {
			return bountyboard_program.ErrUnauthorized
		}

		if bounty.IsClosed {
			return bountyboard_program.ErrAlreadyClosed
		}

		bounty.IsClosed = true
		bounty.BountyHunter = &hunter

		record.Data = bounty.Marshal()
		if err := tx.Update(record); err != nil {
			return err
		}

		p.emitOnCommit(ctx, tx, &Event{
			Type:         EventTypeBountyClosed,
			BoardId:      args.BoardId,
			BountyNumber: args.BountyNumber,
			Board:        accounts.Board,
			Bounty:       accounts.Bounty,
			Authority:    accounts.Authority,
			BountyHunter: hunter,
		})
		return nil
	})
}

func (p *Processor) sendBounty(ctx context.Context, ix solana.Instruction) error {
	accounts, args, err := bountyboard_program.DecompileSendBountyInstruction(ix)
	if err != nil {
		return err
	}

	if !ix.SignedBy(accounts.Authority) {
		return bountyboard_program.ErrUnauthorized
	}

	boardAddress, bountyAddress, vaultAddress, _, _, err := deriveAddresses(args.BoardId, args.BountyNumber)
	if err != nil {
		return err
	}
	for _, check := range [][2]ed25519.PublicKey{
		{accounts.Board, boardAddress},
		{accounts.Bounty, bountyAddress},
		{accounts.BountyVault, vaultAddress},
	} {
		if err := checkAddress(check[0], check[1]); err != nil {
			return err
		}
	}
	if bytes.Equal(accounts.UserVault, accounts.BountyVault) {
		return bountyboard_program.ErrInvalidArgument
	}

	keys := []ed25519.PublicKey{accounts.Board, accounts.Bounty, accounts.BountyVault, accounts.UserVault, accounts.BoardAuthority, accounts.Authority}
	return p.bank.Execute(ctx, keys, func(tx *bank.Tx) error {
		board, err := loadBoard(tx, accounts.Board)
		if err != nil {
			return err
		}

		_, bounty, err := loadBounty(tx, accounts.Bounty)
		if err != nil {
			return err
		}

		// An open bounty has no hunter to match
		if !bounty.IsClosed || bounty.BountyHunter == nil || *bounty.BountyHunter != args.BountyHunter {
			return bountyboard_program.ErrHunterMismatch
		}

		if !bytes.Equal(accounts.BoardAuthority, board.Authority) {
			return bountyboard_program.ErrUnauthorized
		}

		userVault, err := loadTokenAccount(tx, accounts.UserVault)
		if err != nil {
			return err
		}
		if !bytes.Equal(userVault.Mint, board.AcceptedMint) {
			return bountyboard_program.ErrMintMismatch
		}

		vault, err := loadTokenAccount(tx, accounts.BountyVault)
		if err != nil {
			return err
		}
		amount := vault.Amount

		// The program signs for the vault as the board
		signer, err := solana.CreateProgramAddress(
			bountyboard_program.PROGRAM_ID,
			bountyboard_program.GetBoardSignerSeeds(board.BoardId, board.Bump)...,
		)
		if err != nil {
			return errors.Wrap(err, "error creating board signer")
		}
		if !bytes.Equal(signer, accounts.Board) {
			return errors.New("board signer doesn't match board address")
		}

		if err := ledger.Transfer(tx, accounts.BountyVault, accounts.UserVault, signer, amount); err != nil {
			return toProgramError(err)
		}
		if err := ledger.CloseAccount(tx, accounts.BountyVault, accounts.BoardAuthority, signer); err != nil {
			return toProgramError(err)
		}
		if err := tx.Close(accounts.Bounty, accounts.BoardAuthority); err != nil {
			return toProgramError(err)
		}

		p.emitOnCommit(ctx, tx, &Event{
			Type:         EventTypeBountySent,
			BoardId:      args.BoardId,
			BountyNumber: args.BountyNumber,
			Board:        accounts.Board,
			Bounty:       accounts.Bounty,
			Authority:    accounts.Authority,
			Amount:       amount,
			BountyHunter: args.BountyHunter,
		})
		return nil
	})
}

func isValidBountyHunter(name string) bool {
	return len(name) > 0 && len(name) <= bountyboard_program.MaxBountyHunterLength && utf8.ValidString(name)
}
