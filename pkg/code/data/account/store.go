package account

import (
	"context"

	"github.com/code-payments/bounty-board/pkg/database/query"
)

type Store interface {
	// Get gets an account by its address
	Get(ctx context.Context, address string) (*Record, error)

	// GetAllByOwner gets all accounts owned by the provided program, ordered
	// by creation
	GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// Commit atomically creates or updates every record in upserts and removes
	// every record in deletes. Records with a zero version are created, and
	// must not already exist. All other records must match the stored version,
	// otherwise ErrStaleVersion is returned and nothing is applied.
	//
	// On success, upserted records are updated with their new version.
	Commit(ctx context.Context, upserts []*Record, deletes []*Record) error
}

// ValidateCommit validates the records of a commit and ensures each address
// appears at most once.
func ValidateCommit(upserts []*Record, deletes []*Record) error {
	seen := make(map[string]struct{}, len(upserts)+len(deletes))

	for _, records := range [][]*Record{upserts, deletes} {
		for _, record := range records {
			if err := record.Validate(); err != nil {
				return err
			}

			if _, ok := seen[record.Address]; ok {
				return ErrInvalidAccount
			}
			seen[record.Address] = struct{}{}
		}
	}

	for _, record := range deletes {
		if record.Version == 0 {
			return ErrInvalidAccount
		}
	}

	return nil
}
