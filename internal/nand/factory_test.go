package nand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nandfs/internal/fs"
)

func TestMakeFileSystemSession(t *testing.T) {
	t.Parallel()

	fsys, err := MakeFileSystem(fs.LocationSession, Options{})
	require.NoError(t, err)

	// A session filesystem comes up formatted and usable.
	require.NoError(t, fsys.CreateFile(fs.RootUid, 0, "/scratch", 0,
		fs.ModeReadWrite, fs.ModeNone, fs.ModeNone))

	names, err := fsys.ReadDirectory(fs.RootUid, 0, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"scratch"}, names)

	// Shutdown removes the backing image.
	nfs := fsys.(*NandFS)
	path := nfs.Store().Path()
	require.NoError(t, fsys.Shutdown())
	assert.NoFileExists(t, path)
}

func TestMakeFileSystemConfigured(t *testing.T) {
	t.Setenv("NANDFS_CONFIG_DIR", t.TempDir())

	fsys, err := MakeFileSystem(fs.LocationConfigured, Options{})
	require.NoError(t, err)

	// A second opener is excluded while the image is held.
	_, err = MakeFileSystem(fs.LocationConfigured, Options{})
	assert.Equal(t, fs.ErrInUse, fs.Code(err))

	require.NoError(t, fsys.Shutdown())
}

func TestMakeFileSystemUnknownLocation(t *testing.T) {
	t.Parallel()

	_, err := MakeFileSystem(fs.Location(99), Options{})
	assert.Error(t, err)
}
