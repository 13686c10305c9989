// Copyright 2025 NandFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fs defines the filesystem contract of the emulated NAND storage:
// the closed result set, the value types, the FileSystem interface, and the
// FileHandle capability. Concrete engines live in internal/nand.
//
// Every operation is synchronous and atomic with respect to the entry or
// handle it touches. The engine performs no internal locking; a single
// logical owner must serialize access.
package fs

// FileSystem is the engine contract. All paths are absolute,
// '/'-separated. Callers carry an identity (uid, gid) which the engine
// compares against stored entry attributes; owner mode governs when the
// caller uid matches, else group mode when the gid matches, else other mode.
type FileSystem interface {
	// Format destroys all entries and open handles and reinitializes an
	// empty root owned by uid. Irreversible.
	Format(uid Uid) error

	// OpenFile opens a file for the requested access mode and returns an
	// auto-closing handle. Directories cannot be opened.
	OpenFile(uid Uid, gid Gid, path string, mode Mode) (*FileHandle, error)
	// Close releases an open descriptor.
	Close(fd Fd) error
	// ReadBytes reads up to size bytes from the descriptor's current offset
	// and advances it by the bytes actually read. Reading at or past
	// end-of-file returns zero bytes, not an error.
	ReadBytes(fd Fd, size uint32) ([]byte, error)
	// WriteBytes writes data at the current offset, growing the file if
	// capacity allows, and advances the offset by the bytes written.
	WriteBytes(fd Fd, data []byte) (uint32, error)
	// Seek repositions the descriptor offset and returns the new absolute
	// offset. Seeking beyond the current size is permitted.
	Seek(fd Fd, offset uint32, whence SeekMode) (uint32, error)
	// GetFileStatus returns the descriptor's current offset and file size.
	GetFileStatus(fd Fd) (FileStatus, error)

	// CreateFile creates a file with the given attribute and modes.
	CreateFile(callerUid Uid, callerGid Gid, path string, attr FileAttribute,
		ownerMode, groupMode, otherMode Mode) error
	// CreateDirectory creates a directory with the given attribute and modes.
	CreateDirectory(callerUid Uid, callerGid Gid, path string, attr FileAttribute,
		ownerMode, groupMode, otherMode Mode) error
	// Delete removes a file or empty directory.
	Delete(callerUid Uid, callerGid Gid, path string) error
	// Rename moves an entry, preserving its table-slot identity. An existing
	// destination is replaced only when compatible: file over file, or empty
	// directory over empty directory.
	Rename(callerUid Uid, callerGid Gid, oldPath, newPath string) error
	// ReadDirectory lists the immediate children of a directory in insertion
	// order.
	ReadDirectory(callerUid Uid, callerGid Gid, path string) ([]string, error)

	// GetMetadata returns the full attribute record for an entry.
	GetMetadata(callerUid Uid, callerGid Gid, path string) (Metadata, error)
	// SetMetadata replaces the attribute record. Only the owning uid or
	// RootUid may mutate; only RootUid may change ownership.
	SetMetadata(callerUid Uid, path string, uid Uid, gid Gid, attr FileAttribute,
		ownerMode, groupMode, otherMode Mode) error

	// GetNandStats reports global cluster and inode usage.
	GetNandStats() (NandStats, error)
	// GetDirectoryStats reports cluster and inode usage under a subtree.
	GetDirectoryStats(path string) (DirectoryStats, error)

	// Snapshot serializes the full engine state (entry table, quota
	// counters, open-handle table) into a versioned binary blob.
	Snapshot() ([]byte, error)
	// RestoreSnapshot replaces the engine state with a previously captured
	// snapshot. Incompatible or corrupt blobs are rejected.
	RestoreSnapshot(data []byte) error

	// Shutdown releases the backing store. The engine must not be used
	// afterwards.
	Shutdown() error
}
