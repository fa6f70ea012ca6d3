package bountyboard

import "fmt"

type BountyBoardError uint32

const (
	// An account already exists at the derived address
	ErrAlreadyInitialized BountyBoardError = iota + 0x1770

	// The board, bounty or vault doesn't exist
	ErrNotFound

	// The token mint doesn't match the board's accepted mint
	ErrMintMismatch

	// The bounty is closed and no longer accepts deposits
	ErrBountyClosed

	// The bounty has already been closed
	ErrAlreadyClosed

	// The signer isn't entitled to perform the instruction
	ErrUnauthorized

	// An instruction argument is out of range
	ErrInvalidArgument

	// The source token account balance is too low
	ErrInsufficientFunds

	// The bounty is still open, or its recorded hunter doesn't match
	ErrHunterMismatch
)

var errorMessages = map[BountyBoardError]string{
	ErrAlreadyInitialized: "already initialized",
	ErrNotFound:           "not found",
	ErrMintMismatch:       "mint mismatch",
	ErrBountyClosed:       "bounty closed",
	ErrAlreadyClosed:      "bounty already closed",
	ErrUnauthorized:       "unauthorized",
	ErrInvalidArgument:    "invalid argument",
	ErrInsufficientFunds:  "insufficient funds",
	ErrHunterMismatch:     "bounty hunter mismatch",
}

func (e BountyBoardError) Error() string {
	msg, ok := errorMessages[e]
	if !ok {
		msg = "unknown error"
	}
	return fmt.Sprintf("bounty board error %#x: %s", uint32(e), msg)
}

// Code returns the custom program error code.
func (e BountyBoardError) Code() uint32 {
	return uint32(e)
}
