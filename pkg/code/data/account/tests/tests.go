package tests

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
)

func RunTests(t *testing.T, s account.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s account.Store){
		testHappyPath,
		testStaleVersions,
		testAtomicCommit,
		testDeleteAndRecreate,
		testGetAllByOwner,
		testInvalidCommits,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s account.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		start := time.Now()

		ctx := context.Background()

		expected := &account.Record{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 2039280,
			Data:     []byte{1, 2, 3},
		}
		cloned := expected.Clone()

		_, err := s.Get(ctx, expected.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		require.NoError(t, s.Commit(ctx, []*account.Record{expected}, nil))
		assert.True(t, expected.Id > 0)
		assert.EqualValues(t, 1, expected.Version)
		assert.True(t, expected.LastUpdatedAt.After(start))

		actual, err := s.Get(ctx, expected.Address)
		require.NoError(t, err)
		assert.True(t, cloned.Equals(actual))
		assert.Equal(t, expected.Id, actual.Id)
		assert.EqualValues(t, 1, actual.Version)

		// Mutating the fetched record doesn't affect the store
		actual.Data[0] = 0xff

		actual, err = s.Get(ctx, expected.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 1, actual.Data[0])

		actual.Lamports = 10
		actual.Data = []byte{4, 5, 6, 7}
		cloned = actual.Clone()
		require.NoError(t, s.Commit(ctx, []*account.Record{actual}, nil))
		assert.EqualValues(t, 2, actual.Version)
		assert.Equal(t, expected.Id, actual.Id)

		actual, err = s.Get(ctx, expected.Address)
		require.NoError(t, err)
		assert.True(t, cloned.Equals(actual))
		assert.EqualValues(t, 2, actual.Version)

		require.NoError(t, s.Commit(ctx, nil, []*account.Record{actual}))

		_, err = s.Get(ctx, expected.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testStaleVersions(t *testing.T, s account.Store) {
	t.Run("testStaleVersions", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 1,
		}
		require.NoError(t, s.Commit(ctx, []*account.Record{record.Clone()}, nil))

		// Creating an existing account
		duplicate := record.Clone()
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, []*account.Record{duplicate}, nil))
		assert.EqualValues(t, 0, duplicate.Version)

		// Two writers racing off the same version
		first, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		second := first.Clone()

		first.Lamports = 2
		require.NoError(t, s.Commit(ctx, []*account.Record{first}, nil))

		second.Lamports = 3
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, []*account.Record{second}, nil))
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, nil, []*account.Record{second}))

		actual, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 2, actual.Lamports)
		assert.EqualValues(t, 2, actual.Version)

		// Updating an account that doesn't exist
		missing := &account.Record{
			Address: newAddress(t),
			Owner:   newAddress(t),
			Version: 1,
		}
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, []*account.Record{missing}, nil))
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, nil, []*account.Record{missing}))
	})
}

func testAtomicCommit(t *testing.T, s account.Store) {
	t.Run("testAtomicCommit", func(t *testing.T) {
		ctx := context.Background()

		owner := newAddress(t)

		existing := &account.Record{
			Address:  newAddress(t),
			Owner:    owner,
			Lamports: 100,
		}
		toDelete := &account.Record{
			Address:  newAddress(t),
			Owner:    owner,
			Lamports: 50,
		}
		require.NoError(t, s.Commit(ctx, []*account.Record{existing, toDelete}, nil))

		stale := existing.Clone()

		existing.Lamports = 150
		require.NoError(t, s.Commit(ctx, []*account.Record{existing}, nil))

		// A commit with a single stale record applies nothing
		created := &account.Record{
			Address:  newAddress(t),
			Owner:    owner,
			Lamports: 1,
		}
		stale.Lamports = 0
		err := s.Commit(ctx, []*account.Record{created, stale}, []*account.Record{toDelete})
		assert.Equal(t, account.ErrStaleVersion, err)

		_, err = s.Get(ctx, created.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		_, err = s.Get(ctx, toDelete.Address)
		require.NoError(t, err)

		actual, err := s.Get(ctx, existing.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 150, actual.Lamports)

		// The same commit against fresh versions applies everything
		created = &account.Record{
			Address:  newAddress(t),
			Owner:    owner,
			Lamports: 1,
		}
		actual.Lamports = 200
		require.NoError(t, s.Commit(ctx, []*account.Record{created, actual}, []*account.Record{toDelete}))

		_, err = s.Get(ctx, created.Address)
		require.NoError(t, err)

		_, err = s.Get(ctx, toDelete.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		actual, err = s.Get(ctx, existing.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 200, actual.Lamports)
	})
}

func testDeleteAndRecreate(t *testing.T, s account.Store) {
	t.Run("testDeleteAndRecreate", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 1,
		}
		require.NoError(t, s.Commit(ctx, []*account.Record{record}, nil))
		require.NoError(t, s.Commit(ctx, nil, []*account.Record{record}))

		// A deleted account can't be deleted again
		assert.Equal(t, account.ErrStaleVersion, s.Commit(ctx, nil, []*account.Record{record}))

		recreated := &account.Record{
			Address:  record.Address,
			Owner:    newAddress(t),
			Lamports: 2,
		}
		require.NoError(t, s.Commit(ctx, []*account.Record{recreated}, nil))
		assert.EqualValues(t, 1, recreated.Version)

		actual, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		assert.Equal(t, recreated.Owner, actual.Owner)
		assert.EqualValues(t, 2, actual.Lamports)

		_, err = s.GetAllByOwner(ctx, record.Owner, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testGetAllByOwner(t *testing.T, s account.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		owner := newAddress(t)
		other := newAddress(t)

		_, err := s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)

		var expected []*account.Record
		for i := 0; i < 5; i++ {
			record := &account.Record{
				Address:  newAddress(t),
				Owner:    owner,
				Lamports: uint64(i),
			}
			require.NoError(t, s.Commit(ctx, []*account.Record{record}, nil))
			expected = append(expected, record)

			require.NoError(t, s.Commit(ctx, []*account.Record{{
				Address: newAddress(t),
				Owner:   other,
			}}, nil))
		}

		actual, err := s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.Equal(t, expected[i].Address, record.Address)
		}

		actual, err = s.GetAllByOwner(ctx, owner, query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.Equal(t, expected[4-i].Address, record.Address)
		}

		actual, err = s.GetAllByOwner(ctx, owner, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[0].Address, actual[0].Address)
		assert.Equal(t, expected[1].Address, actual[1].Address)

		actual, err = s.GetAllByOwner(ctx, owner, query.ToCursor(actual[1].Id), 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[2].Address, actual[0].Address)
		assert.Equal(t, expected[3].Address, actual[1].Address)

		actual, err = s.GetAllByOwner(ctx, owner, query.ToCursor(expected[2].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[1].Address, actual[0].Address)
		assert.Equal(t, expected[0].Address, actual[1].Address)

		_, err = s.GetAllByOwner(ctx, owner, query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testInvalidCommits(t *testing.T, s account.Store) {
	t.Run("testInvalidCommits", func(t *testing.T) {
		ctx := context.Background()

		valid := &account.Record{
			Address: newAddress(t),
			Owner:   newAddress(t),
		}

		for _, tc := range []struct {
			upserts []*account.Record
			deletes []*account.Record
		}{
			{upserts: []*account.Record{{Address: "invalid", Owner: newAddress(t)}}},
			{upserts: []*account.Record{{Address: newAddress(t)}}},
			{upserts: []*account.Record{valid, valid.Clone()}},
			{upserts: []*account.Record{valid}, deletes: []*account.Record{valid.Clone()}},
			{deletes: []*account.Record{valid}},
		} {
			assert.Error(t, s.Commit(ctx, tc.upserts, tc.deletes))
		}

		_, err := s.Get(ctx, valid.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func newAddress(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub)
}
