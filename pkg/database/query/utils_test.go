package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateQuery(t *testing.T) {
	query, opts := PaginateQuery("SELECT * FROM table WHERE (owner = $1)", []interface{}{"owner"}, ToCursor(10), 5, Descending)
	assert.Equal(t, "SELECT * FROM table WHERE (owner = $1) AND id < $2 ORDER BY id DESC LIMIT $3", query)
	assert.Equal(t, []interface{}{"owner", uint64(10), uint64(5)}, opts)

	query, opts = PaginateQuery("SELECT * FROM table WHERE (owner = $1)", []interface{}{"owner"}, nil, 0, Ascending)
	assert.Equal(t, "SELECT * FROM table WHERE (owner = $1) ORDER BY id ASC", query)
	assert.Equal(t, []interface{}{"owner"}, opts)
}

func TestDefaultPaginationHandlerWithLimit(t *testing.T) {
	req, err := DefaultPaginationHandlerWithLimit(100, WithLimit(10), WithDirection(Descending), WithCursor(ToCursor(3)))
	require.NoError(t, err)
	assert.EqualValues(t, 10, req.Limit)
	assert.Equal(t, Descending, req.SortBy)
	assert.EqualValues(t, 3, req.Cursor.ToUint64())

	_, err = DefaultPaginationHandlerWithLimit(100, WithLimit(101))
	assert.Equal(t, ErrQueryNotSupported, err)
}

func TestToOrdering(t *testing.T) {
	ordering, err := ToOrdering("asc")
	require.NoError(t, err)
	assert.Equal(t, Ascending, ordering)

	ordering, err = ToOrdering("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, ordering)

	_, err = ToOrdering("sideways")
	assert.Error(t, err)
}

func TestCursor(t *testing.T) {
	cursor := ToCursor(258)
	assert.Equal(t, Cursor{0, 0, 0, 0, 0, 0, 1, 2}, cursor)
	assert.EqualValues(t, 258, cursor.ToUint64())
	assert.Equal(t, "1111115T", cursor.ToBase58())
}
