package bountyboard

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
	bountyboard_program "github.com/code-payments/bounty-board/pkg/solana/bountyboard"
	"github.com/code-payments/bounty-board/pkg/solana/token"
)

// Bounty is a committed bounty along with its address and the cursor that
// pages past it.
type Bounty struct {
	Address ed25519.PublicKey
	State   *bountyboard_program.BountyAccount
	Cursor  query.Cursor
}

// GetBoard returns the board with the provided id, or ErrNotFound.
func (p *Processor) GetBoard(ctx context.Context, boardId uint32) (ed25519.PublicKey, *bountyboard_program.BoardAccount, error) {
	address, _, err := bountyboard_program.GetBoardAddress(&bountyboard_program.GetBoardAddressArgs{
		BoardId: boardId,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error deriving board address")
	}

	// Boards are never mutated or deleted once created
	cacheKey := base58.Encode(address)
	if cached, ok := p.boards.Retrieve(cacheKey); ok {
		return address, cached.(*bountyboard_program.BoardAccount).Clone(), nil
	}

	record, err := p.bank.GetAccount(ctx, address)
	if err == account.ErrAccountNotFound {
		return nil, nil, bountyboard_program.ErrNotFound
	} else if err != nil {
		return nil, nil, err
	}

	board, err := decodeBoard(record)
	if err != nil {
		return nil, nil, err
	}

	_ = p.boards.Insert(cacheKey, board.Clone(), 1)
	return address, board, nil
}

// GetBounty returns the bounty with the provided number on a board, or
// ErrNotFound. A bounty that's been sent no longer exists.
func (p *Processor) GetBounty(ctx context.Context, boardId, bountyNumber uint32) (*Bounty, error) {
	_, address, _, _, _, err := deriveAddresses(boardId, bountyNumber)
	if err != nil {
		return nil, err
	}

	record, err := p.bank.GetAccount(ctx, address)
	if err == account.ErrAccountNotFound {
		return nil, bountyboard_program.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	state, err := decodeBounty(record)
	if err != nil {
		return nil, err
	}

	return &Bounty{
		Address: address,
		State:   state,
		Cursor:  query.ToCursor(record.Id),
	}, nil
}

// GetBountyVault returns the token account escrowing a bounty's deposits, or
// ErrNotFound.
func (p *Processor) GetBountyVault(ctx context.Context, boardId, bountyNumber uint32) (ed25519.PublicKey, *token.Account, error) {
	_, _, address, _, _, err := deriveAddresses(boardId, bountyNumber)
	if err != nil {
		return nil, nil, err
	}

	record, err := p.bank.GetAccount(ctx, address)
	if err == account.ErrAccountNotFound {
		return nil, nil, bountyboard_program.ErrNotFound
	} else if err != nil {
		return nil, nil, err
	}

	if !record.IsOwnedBy(token.ProgramKey) {
		return nil, nil, bountyboard_program.ErrNotFound
	}

	var state token.Account
	if !state.Unmarshal(record.Data) {
		return nil, nil, bountyboard_program.ErrNotFound
	}
	return address, &state, nil
}

// GetBountiesByBoard returns a page of the open and closed bounties on a
// board, ordered by creation. An empty page returns ErrNotFound.
func (p *Processor) GetBountiesByBoard(ctx context.Context, boardId uint32, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Bounty, error) {
	boardAddress, _, err := p.GetBoard(ctx, boardId)
	if err != nil {
		return nil, err
	}

	maxPageSize := p.conf.maxBountiesPageSize.Get(ctx)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	// Program accounts are scanned in pages and filtered down to this board's
	// bounties until the page is full.
	var res []*Bounty
	for uint64(len(res)) < limit {
		records, err := p.bank.GetAccountsByOwner(ctx, bountyboard_program.PROGRAM_ID, cursor, maxPageSize, direction)
		if err == account.ErrAccountNotFound {
			break
		} else if err != nil {
			return nil, err
		}

		for _, record := range records {
			cursor = query.ToCursor(record.Id)

			if !bytes.HasPrefix(record.Data, bountyboard_program.BountyAccountDiscriminator) {
				continue
			}

			state, err := decodeBounty(record)
			if err != nil {
				continue
			}
			if !bytes.Equal(state.Board, boardAddress) {
				continue
			}

			address, err := base58.Decode(record.Address)
			if err != nil {
				return nil, errors.Wrap(err, "invalid account address")
			}

			res = append(res, &Bounty{
				Address: address,
				State:   state,
				Cursor:  query.ToCursor(record.Id),
			})
			if uint64(len(res)) >= limit {
				break
			}
		}

		if uint64(len(records)) < maxPageSize {
			break
		}
	}

	if len(res) == 0 {
		return nil, bountyboard_program.ErrNotFound
	}
	return res, nil
}
