package bountyboard

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

// BoardAccountSize is the space allocated for a board account. The encoded
// board is smaller and the remainder is zero padded.
const BoardAccountSize = 200

const boardEncodedSize = (8 + // discriminator
	32 + // authority
	4 + // board_id
	32 + // accepted_mint
	1) // bump

var BoardAccountDiscriminator = []byte{79, 48, 160, 63, 153, 132, 240, 56}

type BoardAccount struct {
	Authority    ed25519.PublicKey
	BoardId      uint32
	AcceptedMint ed25519.PublicKey
	Bump         uint8
}

func (obj *BoardAccount) Clone() *BoardAccount {
	return &BoardAccount{
		Authority:    cloneKey(obj.Authority),
		BoardId:      obj.BoardId,
		AcceptedMint: cloneKey(obj.AcceptedMint),
		Bump:         obj.Bump,
	}
}

func (obj *BoardAccount) Marshal() []byte {
	data := make([]byte, BoardAccountSize)

	var offset int

	putDiscriminator(data, BoardAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Authority, &offset)
	binary.PutUint32(data[offset:], obj.BoardId, &offset)
	binary.PutKey32(data[offset:], obj.AcceptedMint, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *BoardAccount) Unmarshal(data []byte) error {
	if len(data) < boardEncodedSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, BoardAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	binary.GetKey32(data[offset:], &obj.Authority, &offset)
	binary.GetUint32(data[offset:], &obj.BoardId, &offset)
	binary.GetKey32(data[offset:], &obj.AcceptedMint, &offset)
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

func (obj *BoardAccount) String() string {
	return fmt.Sprintf(
		"BoardAccount{authority=%s,board_id=%d,accepted_mint=%s,bump=%d}",
		base58.Encode(obj.Authority),
		obj.BoardId,
		base58.Encode(obj.AcceptedMint),
		obj.Bump,
	)
}

func cloneKey(key ed25519.PublicKey) ed25519.PublicKey {
	if key == nil {
		return nil
	}
	cloned := make(ed25519.PublicKey, len(key))
	copy(cloned, key)
	return cloned
}
