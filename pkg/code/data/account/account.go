package account

import (
	"bytes"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrStaleVersion    = errors.New("account version is stale")
)

// Record is the persisted state of a single ledger account. The address is the
// primary key, and the owner is the program that's allowed to modify its data.
type Record struct {
	Id uint64

	Address string
	Owner   string

	Lamports uint64
	Data     []byte

	// Version is bumped on every committed update. A zero version refers to an
	// account that hasn't been created yet.
	Version uint64

	LastUpdatedAt time.Time
}

func (r *Record) IsOwnedBy(program []byte) bool {
	return r.Owner == base58.Encode(program)
}

func (r *Record) Clone() *Record {
	var data []byte
	if r.Data != nil {
		data = make([]byte, len(r.Data))
		copy(data, r.Data)
	}

	return &Record{
		Id: r.Id,

		Address: r.Address,
		Owner:   r.Owner,

		Lamports: r.Lamports,
		Data:     data,

		Version: r.Version,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	var data []byte
	if r.Data != nil {
		data = make([]byte, len(r.Data))
		copy(data, r.Data)
	}

	dst.Id = r.Id

	dst.Address = r.Address
	dst.Owner = r.Owner

	dst.Lamports = r.Lamports
	dst.Data = data

	dst.Version = r.Version

	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}

	if err := validateAddress(r.Address); err != nil {
		return errors.Wrap(err, "invalid address")
	}

	if err := validateAddress(r.Owner); err != nil {
		return errors.Wrap(err, "invalid owner")
	}

	return nil
}

// Equals compares the persisted state of two records, ignoring store managed
// metadata.
func (r *Record) Equals(other *Record) bool {
	return r.Address == other.Address &&
		r.Owner == other.Owner &&
		r.Lamports == other.Lamports &&
		bytes.Equal(r.Data, other.Data)
}

func validateAddress(address string) error {
	if len(address) == 0 {
		return errors.New("address is required")
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return err
	}

	if len(decoded) != 32 {
		return errors.Errorf("invalid address length: %d", len(decoded))
	}

	return nil
}
