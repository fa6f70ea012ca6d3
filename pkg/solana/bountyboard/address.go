package bountyboard

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/bounty-board/pkg/solana"
)

var (
	boardPrefix       = []byte("board")
	bountyPrefix      = []byte("bounty")
	bountyVaultPrefix = []byte("bounty_vault")
)

type GetBoardAddressArgs struct {
	BoardId uint32
}

type GetBountyAddressArgs struct {
	Board        ed25519.PublicKey
	BountyNumber uint32
}

type GetBountyVaultAddressArgs struct {
	Bounty ed25519.PublicKey
}

func GetBoardAddress(args *GetBoardAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		boardPrefix,
		uint32Seed(args.BoardId),
	)
}

func GetBountyAddress(args *GetBountyAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		bountyPrefix,
		args.Board,
		uint32Seed(args.BountyNumber),
	)
}

func GetBountyVaultAddress(args *GetBountyVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		bountyVaultPrefix,
		args.Bounty,
	)
}

// GetBoardSignerSeeds returns the seeds the program signs with when acting as
// the token authority of a bounty vault.
func GetBoardSignerSeeds(boardId uint32, bump uint8) [][]byte {
	return [][]byte{
		boardPrefix,
		uint32Seed(boardId),
		{bump},
	}
}

func uint32Seed(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
