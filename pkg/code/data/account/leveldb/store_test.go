package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/code-payments/bounty-board/pkg/code/data/account/tests"
)

func TestAccountLevelDBStore(t *testing.T) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	defer db.Close()

	testStore := NewWithDB(db)
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}

func TestAccountLevelDBStore_OnDisk(t *testing.T) {
	testStore, closeFunc, err := New(t.TempDir())
	require.NoError(t, err)
	defer closeFunc()

	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
