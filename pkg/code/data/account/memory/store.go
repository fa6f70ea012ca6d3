package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
)

type store struct {
	mu      sync.Mutex
	records map[string]*account.Record
	last    uint64
}

type ById []*account.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

// New returns a new in memory account.Store
func New() account.Store {
	return &store{
		records: make(map[string]*account.Record),
	}
}

// Get implements account.Store.Get
func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.records[address]; ok {
		return item.Clone(), nil
	}
	return nil, account.ErrAccountNotFound
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(_ context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*account.Record
	for _, item := range s.records {
		if item.Owner == owner {
			items = append(items, item.Clone())
		}
	}

	res := s.filter(items, cursor, limit, direction)
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

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every version before applying anything
	for _, record := range upserts {
		existing, ok := s.records[record.Address]
		if record.Version == 0 && ok {
			return account.ErrStaleVersion
		}
		if record.Version > 0 && (!ok || existing.Version != record.Version) {
			return account.ErrStaleVersion
		}
	}
	for _, record := range deletes {
		existing, ok := s.records[record.Address]
		if !ok || existing.Version != record.Version {
			return account.ErrStaleVersion
		}
	}

	now := time.Now()

	for _, record := range deletes {
		delete(s.records, record.Address)
	}

	for _, record := range upserts {
		if existing, ok := s.records[record.Address]; ok {
			record.Id = existing.Id
		} else {
			s.last++
			record.Id = s.last
		}

		record.Version++
		record.LastUpdatedAt = now

		s.records[record.Address] = record.Clone()
	}

	return nil
}

func (s *store) filter(items []*account.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*account.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*account.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	} else {
		sort.Sort(ById(res))
	}

	if len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*account.Record)
	s.last = 0
}
