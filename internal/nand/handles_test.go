package nand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nandfs/internal/fs"
)

func TestHandleTableLowestFreeSlot(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()

	fd0, err := table.Allocate(10, "/a", fs.ModeRead)
	require.NoError(t, err)
	fd1, err := table.Allocate(11, "/b", fs.ModeRead)
	require.NoError(t, err)
	fd2, err := table.Allocate(12, "/c", fs.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, fs.Fd(0), fd0)
	assert.Equal(t, fs.Fd(1), fd1)
	assert.Equal(t, fs.Fd(2), fd2)

	// Releasing the middle slot makes it the next one handed out.
	require.NoError(t, table.Release(fd1))
	reused, err := table.Allocate(13, "/d", fs.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, fs.Fd(1), reused)
}

func TestHandleTableExhaustion(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()
	for i := 0; i < MaxOpenHandles; i++ {
		_, err := table.Allocate(int64(i), "/f", fs.ModeRead)
		require.NoError(t, err)
	}
	assert.Equal(t, MaxOpenHandles, table.OpenCount())

	_, err := table.Allocate(99, "/overflow", fs.ModeRead)
	assert.Equal(t, fs.ErrNoFreeHandle, fs.Code(err))
}

func TestHandleTableRelease(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()
	fd, err := table.Allocate(5, "/x", fs.ModeReadWrite)
	require.NoError(t, err)

	require.NoError(t, table.Release(fd))
	assert.Equal(t, fs.ErrInvalid, fs.Code(table.Release(fd)), "double release")
	assert.Equal(t, fs.ErrInvalid, fs.Code(table.Release(fs.Fd(MaxOpenHandles))), "fd out of range")

	_, ok := table.Get(fd)
	assert.False(t, ok)
}

func TestHandleTableInoOpen(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()
	fd, err := table.Allocate(42, "/tracked", fs.ModeRead)
	require.NoError(t, err)

	assert.True(t, table.InoOpen(42))
	assert.False(t, table.InoOpen(43))

	require.NoError(t, table.Release(fd))
	assert.False(t, table.InoOpen(42))
}

func TestHandleTableClear(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()
	for i := 0; i < 4; i++ {
		_, err := table.Allocate(int64(i), "/f", fs.ModeRead)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, table.Clear())
	assert.Equal(t, 0, table.OpenCount())
	assert.Equal(t, 0, table.Clear())
}

func TestHandleTableEachOrder(t *testing.T) {
	t.Parallel()

	table := NewHandleTable()
	for i := 0; i < 3; i++ {
		_, err := table.Allocate(int64(100+i), "/f", fs.ModeRead)
		require.NoError(t, err)
	}
	require.NoError(t, table.Release(fs.Fd(1)))

	var fds []fs.Fd
	var inos []int64
	table.Each(func(fd fs.Fd, h *openHandle) {
		fds = append(fds, fd)
		inos = append(inos, h.ino)
	})
	assert.Equal(t, []fs.Fd{0, 2}, fds)
	assert.Equal(t, []int64{100, 102}, inos)
}
