package nand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nandfs/internal/fs"
)

func TestGetNandStatsFreshImage(t *testing.T) {
	t.Parallel()
	n := newTestFS(t)

	stats, err := n.GetNandStats()
	require.NoError(t, err)
	assert.Equal(t, uint32(ClusterSize), stats.ClusterSize)
	assert.Equal(t, uint32(ReservedClusters), stats.ReservedClusters)
	assert.Equal(t, uint32(0), stats.UsedClusters)
	assert.Equal(t, uint32(0), stats.BadClusters)
	assert.Equal(t, uint32(TotalClusters-ReservedClusters), stats.FreeClusters)
	assert.Equal(t, uint32(1), stats.UsedInodes, "root occupies one slot")
	assert.Equal(t, uint32(TotalInodes-1), stats.FreeInodes)
}

func TestGetNandStatsTracksUsage(t *testing.T) {
	t.Parallel()
	n := newTestFS(t)

	mkDir(t, n, "/dir")
	mkFile(t, n, "/dir/small")
	writeFile(t, n, "/dir/small", []byte("tiny")) // 1 cluster
	mkFile(t, n, "/dir/large")
	writeFile(t, n, "/dir/large", make([]byte, ClusterSize+1)) // 2 clusters

	stats, err := n.GetNandStats()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.UsedClusters)
	assert.Equal(t, uint32(TotalClusters-ReservedClusters-3), stats.FreeClusters)
	assert.Equal(t, uint32(4), stats.UsedInodes, "root, dir, and two files")

	// Deleting a file returns its clusters and slot.
	require.NoError(t, n.Delete(fs.RootUid, 0, "/dir/large"))
	stats, err = n.GetNandStats()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.UsedClusters)
	assert.Equal(t, uint32(3), stats.UsedInodes)
}

func TestGetDirectoryStats(t *testing.T) {
	t.Parallel()
	n := newTestFS(t)

	mkDir(t, n, "/sub")
	mkDir(t, n, "/sub/inner")
	mkFile(t, n, "/sub/inner/file")
	writeFile(t, n, "/sub/inner/file", []byte("x"))
	mkFile(t, n, "/other")
	writeFile(t, n, "/other", []byte("y"))

	// The subtree counts the directory itself plus everything beneath it.
	stats, err := n.GetDirectoryStats("/sub")
	require.NoError(t, err)
	assert.Equal(t, fs.DirectoryStats{UsedClusters: 1, UsedInodes: 3}, stats)

	stats, err = n.GetDirectoryStats("/sub/inner")
	require.NoError(t, err)
	assert.Equal(t, fs.DirectoryStats{UsedClusters: 1, UsedInodes: 2}, stats)

	stats, err = n.GetDirectoryStats("/")
	require.NoError(t, err)
	assert.Equal(t, fs.DirectoryStats{UsedClusters: 2, UsedInodes: 5}, stats)
}

func TestGetDirectoryStatsErrors(t *testing.T) {
	t.Parallel()
	n := newTestFS(t)

	mkFile(t, n, "/file")

	_, err := n.GetDirectoryStats("/file")
	assert.Equal(t, fs.ErrInvalid, fs.Code(err))

	_, err = n.GetDirectoryStats("/missing")
	assert.Equal(t, fs.ErrNotFound, fs.Code(err))

	_, err = n.GetDirectoryStats("relative")
	assert.Equal(t, fs.ErrInvalid, fs.Code(err))
}
