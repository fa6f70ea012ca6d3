package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
)

var (
	accountPrefix = []byte("account/")
	ownerPrefix   = []byte("owner/")
	lastIdKey     = []byte("meta/last_id")
)

type store struct {
	// Serializes commits, so versions checked against the db remain valid until
	// the batch is written.
	commitMu sync.Mutex

	db *leveldb.DB
}

// entry is the on-disk representation of an account.Record
type entry struct {
	Id            uint64    `json:"id"`
	Address       string    `json:"address"`
	Owner         string    `json:"owner"`
	Lamports      uint64    `json:"lamports"`
	Data          []byte    `json:"data"`
	Version       uint64    `json:"version"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// New returns a new account.Store backed by a LevelDB database at the
// provided path, creating it if it doesn't exist.
func New(path string) (account.Store, func() error, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error opening leveldb database")
	}
	return NewWithDB(db), db.Close, nil
}

// NewWithDB returns a new account.Store backed by an already opened LevelDB
// database.
func NewWithDB(db *leveldb.DB) account.Store {
	return &store{
		db: db,
	}
}

// Get implements account.Store.Get
func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	return s.get(address)
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(_ context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	prefix := ownerIndexPrefix(owner)

	r := util.BytesPrefix(prefix)
	if len(cursor) > 0 {
		if direction == query.Ascending {
			r.Start = ownerIndexKey(owner, cursor.ToUint64()+1)
		} else {
			r.Limit = ownerIndexKey(owner, cursor.ToUint64())
		}
	}

	// Reads are taken from a snapshot so pages are consistent with a single
	// point in time.
	snapshot, err := s.db.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "error getting snapshot")
	}
	defer snapshot.Release()

	it := snapshot.NewIterator(r, nil)
	defer it.Release()

	next := it.Next
	ok := it.First()
	if direction == query.Descending {
		next = it.Prev
		ok = it.Last()
	}

	var res []*account.Record
	for ; ok && (limit == 0 || uint64(len(res)) < limit); ok = next() {
		value, err := snapshot.Get(accountKey(string(it.Value())), nil)
		if err != nil {
			return nil, errors.Wrap(err, "error reading indexed account")
		}

		record, err := fromEntry(value)
		if err != nil {
			return nil, err
		}
		res = append(res, record)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "error iterating owner index")
	}

	if len(res) == 0 {
		return nil, account.ErrAccountNotFound
	}
	return res, nil
}

// Commit implements account.Store.Commit
func (s *store) Commit(_ context.Context, upserts []*account.Record, deletes []*account.Record) error {
	if err := account.ValidateCommit(upserts, deletes); err != nil {
		return err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	existing := make(map[string]*account.Record)
	for _, records := range [][]*account.Record{upserts, deletes} {
		for _, record := range records {
			stored, err := s.get(record.Address)
			if err == account.ErrAccountNotFound {
				if record.Version != 0 {
					return account.ErrStaleVersion
				}
				continue
			} else if err != nil {
				return err
			}

			if stored.Version != record.Version {
				return account.ErrStaleVersion
			}
			existing[record.Address] = stored
		}
	}

	lastId, err := s.getLastId()
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	now := time.Now()

	for _, record := range deletes {
		stored := existing[record.Address]
		batch.Delete(accountKey(record.Address))
		batch.Delete(ownerIndexKey(stored.Owner, stored.Id))
	}

	updated := make([]*account.Record, len(upserts))
	for i, record := range upserts {
		cloned := record.Clone()

		if stored, ok := existing[record.Address]; ok {
			cloned.Id = stored.Id
			if stored.Owner != cloned.Owner {
				batch.Delete(ownerIndexKey(stored.Owner, stored.Id))
			}
		} else {
			lastId++
			cloned.Id = lastId
		}

		cloned.Version++
		cloned.LastUpdatedAt = now

		value, err := toEntry(cloned)
		if err != nil {
			return err
		}

		batch.Put(accountKey(cloned.Address), value)
		batch.Put(ownerIndexKey(cloned.Owner, cloned.Id), []byte(cloned.Address))

		updated[i] = cloned
	}

	lastIdValue := make([]byte, 8)
	binary.BigEndian.PutUint64(lastIdValue, lastId)
	batch.Put(lastIdKey, lastIdValue)

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "error writing batch")
	}

	for i, record := range updated {
		record.CopyTo(upserts[i])
	}
	return nil
}

func (s *store) get(address string) (*account.Record, error) {
	value, err := s.db.Get(accountKey(address), nil)
	if err == leveldb.ErrNotFound {
		return nil, account.ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting account")
	}
	return fromEntry(value)
}

func (s *store) getLastId() (uint64, error) {
	value, err := s.db.Get(lastIdKey, nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrap(err, "error getting last id")
	}
	return binary.BigEndian.Uint64(value), nil
}

func (s *store) reset() {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	batch := new(leveldb.Batch)

	it := s.db.NewIterator(nil, nil)
	for it.Next() {
		batch.Delete(append([]byte{}, it.Key()...))
	}
	it.Release()

	if err := s.db.Write(batch, nil); err != nil {
		panic(err)
	}
}

func toEntry(record *account.Record) ([]byte, error) {
	value, err := json.Marshal(&entry{
		Id:            record.Id,
		Address:       record.Address,
		Owner:         record.Owner,
		Lamports:      record.Lamports,
		Data:          record.Data,
		Version:       record.Version,
		LastUpdatedAt: record.LastUpdatedAt.UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error encoding account")
	}
	return value, nil
}

func fromEntry(value []byte) (*account.Record, error) {
	var e entry
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, errors.Wrap(err, "error decoding account")
	}

	return &account.Record{
		Id:            e.Id,
		Address:       e.Address,
		Owner:         e.Owner,
		Lamports:      e.Lamports,
		Data:          e.Data,
		Version:       e.Version,
		LastUpdatedAt: e.LastUpdatedAt,
	}, nil
}

func accountKey(address string) []byte {
	return append(append([]byte{}, accountPrefix...), address...)
}

func ownerIndexPrefix(owner string) []byte {
	key := append(append([]byte{}, ownerPrefix...), owner...)
	return append(key, '/')
}

func ownerIndexKey(owner string, id uint64) []byte {
	key := ownerIndexPrefix(owner)
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	return append(key, idBytes...)
}
