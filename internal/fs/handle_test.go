package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is a single-file FileSystem stub backing FileHandle tests.
type memFS struct {
	data   []byte
	offset uint32
	closed int
}

func (m *memFS) Close(fd Fd) error {
	m.closed++
	return nil
}

func (m *memFS) ReadBytes(fd Fd, size uint32) ([]byte, error) {
	if m.offset >= uint32(len(m.data)) {
		return nil, nil
	}
	end := m.offset + size
	if end > uint32(len(m.data)) {
		end = uint32(len(m.data))
	}
	out := m.data[m.offset:end]
	m.offset = end
	return out, nil
}

func (m *memFS) WriteBytes(fd Fd, data []byte) (uint32, error) {
	end := m.offset + uint32(len(data))
	if end > uint32(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.offset:end], data)
	m.offset = end
	return uint32(len(data)), nil
}

func (m *memFS) Seek(fd Fd, offset uint32, whence SeekMode) (uint32, error) {
	m.offset = offset
	return m.offset, nil
}

func (m *memFS) GetFileStatus(fd Fd) (FileStatus, error) {
	return FileStatus{Offset: m.offset, Size: uint32(len(m.data))}, nil
}

func (m *memFS) Format(uid Uid) error { panic("not used") }
func (m *memFS) OpenFile(uid Uid, gid Gid, path string, mode Mode) (*FileHandle, error) {
	panic("not used")
}
func (m *memFS) CreateFile(callerUid Uid, callerGid Gid, path string, attr FileAttribute,
	ownerMode, groupMode, otherMode Mode) error {
	panic("not used")
}
func (m *memFS) CreateDirectory(callerUid Uid, callerGid Gid, path string, attr FileAttribute,
	ownerMode, groupMode, otherMode Mode) error {
	panic("not used")
}
func (m *memFS) Delete(callerUid Uid, callerGid Gid, path string) error { panic("not used") }
func (m *memFS) Rename(callerUid Uid, callerGid Gid, oldPath, newPath string) error {
	panic("not used")
}
func (m *memFS) ReadDirectory(callerUid Uid, callerGid Gid, path string) ([]string, error) {
	panic("not used")
}
func (m *memFS) GetMetadata(callerUid Uid, callerGid Gid, path string) (Metadata, error) {
	panic("not used")
}
func (m *memFS) SetMetadata(callerUid Uid, path string, uid Uid, gid Gid, attr FileAttribute,
	ownerMode, groupMode, otherMode Mode) error {
	panic("not used")
}
func (m *memFS) GetNandStats() (NandStats, error)                 { panic("not used") }
func (m *memFS) GetDirectoryStats(path string) (DirectoryStats, error) { panic("not used") }
func (m *memFS) Snapshot() ([]byte, error)                        { panic("not used") }
func (m *memFS) RestoreSnapshot(data []byte) error                { panic("not used") }
func (m *memFS) Shutdown() error                                  { panic("not used") }

func TestFileHandleCloseOnce(t *testing.T) {
	t.Parallel()

	backend := &memFS{}
	h := NewFileHandle(backend, 3)
	assert.Equal(t, Fd(3), h.Fd())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 1, backend.closed, "second Close must be a no-op")
}

func TestFileHandleRelease(t *testing.T) {
	t.Parallel()

	backend := &memFS{}
	h := NewFileHandle(backend, 7)

	fd := h.Release()
	assert.Equal(t, Fd(7), fd)

	require.NoError(t, h.Close())
	assert.Equal(t, 0, backend.closed, "Close after Release must not close the fd")
}

func TestReadWriteElements(t *testing.T) {
	t.Parallel()

	type record struct {
		Key   uint32
		Value uint16
	}

	backend := &memFS{}
	h := NewFileHandle(backend, 0)

	in := []record{{Key: 1, Value: 10}, {Key: 2, Value: 20}, {Key: 3, Value: 30}}
	require.NoError(t, WriteElements(h, in))
	assert.Equal(t, 18, len(backend.data), "3 records of 6 bytes each")

	// Records are big-endian on the wire.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x0A}, backend.data[:6])

	_, err := h.Seek(0, SeekSet)
	require.NoError(t, err)

	out, err := ReadElements[record](h, 3)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadElementsShortRead(t *testing.T) {
	t.Parallel()

	type record struct {
		Key   uint32
		Value uint16
	}

	backend := &memFS{data: []byte{0, 0, 0, 1, 0, 10, 0, 0}} // 1.33 records
	h := NewFileHandle(backend, 0)

	_, err := ReadElements[record](h, 2)
	assert.Equal(t, ErrShortRead, Code(err))
}
