package bountyboard

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/bounty-board/pkg/pointer"
	"github.com/code-payments/bounty-board/pkg/solana/binary"
)

// MaxBountyHunterLength is the maximum length, in bytes, of a bounty hunter name.
const MaxBountyHunterLength = 64

// BountyAccountSize is the space allocated for a bounty account, which fits
// the largest bounty hunter name.
const BountyAccountSize = 200

const bountyMinEncodedSize = (8 + // discriminator
	32 + // board
	4 + // bounty_number
	8 + // total
	1 + // is_closed
	1 + // bounty_hunter (None)
	1 + // bump
	1) // vault_bump

var BountyAccountDiscriminator = []byte{237, 16, 105, 198, 19, 69, 242, 234}

type BountyAccount struct {
	Board        ed25519.PublicKey
	BountyNumber uint32
	Total        uint64
	IsClosed     bool
	BountyHunter *string // optional
	Bump         uint8
	VaultBump    uint8
}

func (obj *BountyAccount) Clone() *BountyAccount {
	cloned := &BountyAccount{
		Board:        cloneKey(obj.Board),
		BountyNumber: obj.BountyNumber,
		Total:        obj.Total,
		IsClosed:     obj.IsClosed,
		Bump:         obj.Bump,
		VaultBump:    obj.VaultBump,
		BountyHunter: pointer.StringCopy(obj.BountyHunter),
	}
	return cloned
}

func (obj *BountyAccount) Marshal() []byte {
	data := make([]byte, BountyAccountSize)

	var offset int

	putDiscriminator(data, BountyAccountDiscriminator, &offset)
	binary.PutKey32(data[offset:], obj.Board, &offset)
	binary.PutUint32(data[offset:], obj.BountyNumber, &offset)
	binary.PutUint64(data[offset:], obj.Total, &offset)
	binary.PutBool(data[offset:], obj.IsClosed, &offset)
	binary.PutOptionalString(data[offset:], obj.BountyHunter, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)
	binary.PutUint8(data[offset:], obj.VaultBump, &offset)

	return data
}

func (obj *BountyAccount) Unmarshal(data []byte) error {
	if len(data) < bountyMinEncodedSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, BountyAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	binary.GetKey32(data[offset:], &obj.Board, &offset)
	binary.GetUint32(data[offset:], &obj.BountyNumber, &offset)
	binary.GetUint64(data[offset:], &obj.Total, &offset)
	binary.GetBool(data[offset:], &obj.IsClosed, &offset)
	if err := binary.GetOptionalString(data[offset:], &obj.BountyHunter, &offset); err != nil {
		return ErrInvalidAccountData
	}
	if len(data) < offset+2 {
		return ErrInvalidAccountData
	}
	binary.GetUint8(data[offset:], &obj.Bump, &offset)
	binary.GetUint8(data[offset:], &obj.VaultBump, &offset)

	return nil
}

func (obj *BountyAccount) String() string {
	hunter := "<none>"
	if obj.BountyHunter != nil {
		hunter = *obj.BountyHunter
	}

	return fmt.Sprintf(
		"BountyAccount{board=%s,bounty_number=%d,total=%d,is_closed=%v,bounty_hunter=%s,bump=%d,vault_bump=%d}",
		base58.Encode(obj.Board),
		obj.BountyNumber,
		obj.Total,
		obj.IsClosed,
		hunter,
		obj.Bump,
		obj.VaultBump,
	)
}
