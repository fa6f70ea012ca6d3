package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMemoryLimit(t *testing.T) {
	dir := t.TempDir()

	for _, tc := range []struct {
		contents string
		expected uint64
		ok       bool
	}{
		{"1073741824\n", 1073741824, true},
		{"9223372036854771712\n", 0, false},
		{"max\n", 0, false},
		{"0", 0, false},
	} {
		location := filepath.Join(dir, "limit")
		require.NoError(t, os.WriteFile(location, []byte(tc.contents), 0o600))

		limit, ok := readMemoryLimit(location)
		assert.Equal(t, tc.ok, ok, tc.contents)
		assert.Equal(t, tc.expected, limit, tc.contents)
	}

	_, ok := readMemoryLimit(filepath.Join(dir, "missing"))
	assert.False(t, ok)
}

func TestGetTotalMemory(t *testing.T) {
	assert.NotZero(t, GetTotalMemory())
}
