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

// Package nand implements the flash filesystem engine over a SQLite-backed
// image store. NandFS is the concrete fs.FileSystem; Store persists the
// superblock, entry table, and cluster content.
package nand

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"nandfs/internal/common"
	"nandfs/internal/fs"
)

// NandFS implements fs.FileSystem over a Store and a fixed descriptor table.
// The engine is single-owner: callers serialize access themselves.
type NandFS struct {
	store   *Store
	handles *HandleTable
}

// New creates an engine over an open image store. An unformatted image is
// formatted for the root identity so the filesystem is always usable.
func New(store *Store) (*NandFS, error) {
	ctx := context.Background()
	formatted, err := store.IsFormatted(ctx)
	if err != nil {
		return nil, err
	}
	if !formatted {
		if err := store.Format(ctx, fs.RootUid); err != nil {
			return nil, err
		}
	}
	return &NandFS{
		store:   store,
		handles: NewHandleTable(),
	}, nil
}

// Store returns the underlying image store
func (n *NandFS) Store() *Store {
	return n.store
}

// resolve walks an absolute path to its entry. Any missing component fails
// ErrNotFound; a file in an intermediate position fails ErrInvalid.
func (n *NandFS) resolve(ctx context.Context, path string) (*Entry, error) {
	parts := common.SplitPath(path)
	current, err := n.store.GetEntry(ctx, RootIno)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if current.IsFile {
			return nil, fs.ErrInvalid
		}
		current, err = n.store.LookupChild(ctx, current.Ino, part)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

// resolveParent resolves the directory that contains path's final component.
func (n *NandFS) resolveParent(ctx context.Context, path string) (*Entry, error) {
	return n.resolve(ctx, common.ParentPath(path))
}

// Format wipes the image, reinitializes the root for uid, and drops all
// open descriptors.
func (n *NandFS) Format(uid fs.Uid) error {
	log.Debugf("Format: uid=%d", uid)
	ctx := context.Background()
	if err := n.store.Format(ctx, uid); err != nil {
		return err
	}
	if dropped := n.handles.Clear(); dropped > 0 {
		log.Debugf("Format: dropped %d open handles", dropped)
	}
	return nil
}

// OpenFile opens a file and returns an auto-closing handle. Directories
// fail ErrInvalid; a full descriptor table fails ErrNoFreeHandle.
func (n *NandFS) OpenFile(uid fs.Uid, gid fs.Gid, path string, mode fs.Mode) (*fs.FileHandle, error) {
	log.Debugf("OpenFile: path=%s mode=%s uid=%d gid=%d", path, mode, uid, gid)
	if mode < fs.ModeRead || mode > fs.ModeReadWrite {
		return nil, fs.ErrInvalid
	}
	if err := common.ValidatePath(path); err != nil {
		return nil, err
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	if !entry.IsFile {
		return nil, fs.ErrInvalid
	}
	if !entry.ModeFor(uid, gid).Includes(mode) {
		return nil, fs.ErrAccessDenied
	}

	fd, err := n.handles.Allocate(entry.Ino, common.NormalizePath(path), mode)
	if err != nil {
		return nil, err
	}
	return fs.NewFileHandle(n, fd), nil
}

// Close releases an open descriptor.
func (n *NandFS) Close(fd fs.Fd) error {
	log.Debugf("Close: fd=%d", fd)
	return n.handles.Release(fd)
}

// ReadBytes reads up to size bytes from the descriptor's offset. A read at
// or past end-of-file returns zero bytes without error.
func (n *NandFS) ReadBytes(fd fs.Fd, size uint32) ([]byte, error) {
	h, ok := n.handles.Get(fd)
	if !ok {
		return nil, fs.ErrInvalid
	}
	if !h.mode.CanRead() {
		return nil, fs.ErrAccessDenied
	}

	ctx := context.Background()
	entry, err := n.store.GetEntry(ctx, h.ino)
	if err != nil {
		return nil, err
	}

	if int64(h.offset) >= entry.Size {
		return []byte{}, nil
	}
	remaining := entry.Size - int64(h.offset)
	if int64(size) > remaining {
		size = uint32(remaining)
	}
	if size == 0 {
		return []byte{}, nil
	}

	data, err := n.store.ReadContent(ctx, h.ino, int64(h.offset), int(size))
	if err != nil {
		return nil, err
	}
	h.offset += uint32(len(data))
	return data, nil
}

// WriteBytes writes data at the descriptor's offset, growing the file when
// cluster capacity allows, and returns the bytes written.
func (n *NandFS) WriteBytes(fd fs.Fd, data []byte) (uint32, error) {
	h, ok := n.handles.Get(fd)
	if !ok {
		return 0, fs.ErrInvalid
	}
	if !h.mode.CanWrite() {
		return 0, fs.ErrAccessDenied
	}
	if len(data) == 0 {
		return 0, nil
	}

	ctx := context.Background()
	entry, err := n.store.GetEntry(ctx, h.ino)
	if err != nil {
		return 0, err
	}

	newSize := int64(h.offset) + int64(len(data))
	if newSize < entry.Size {
		newSize = entry.Size
	}
	if grow := ClustersForSize(newSize) - ClustersForSize(entry.Size); grow > 0 {
		used, err := n.store.UsedClusters(ctx)
		if err != nil {
			return 0, err
		}
		bad, err := n.store.BadClusterCount(ctx)
		if err != nil {
			return 0, err
		}
		if used+grow > TotalClusters-ReservedClusters-bad {
			return 0, fs.ErrNoFreeSpace
		}
	}

	if err := n.store.WriteContent(ctx, h.ino, int64(h.offset), data); err != nil {
		return 0, err
	}
	if newSize > entry.Size {
		if err := n.store.UpdateEntrySize(ctx, h.ino, newSize); err != nil {
			return 0, err
		}
	}
	h.offset += uint32(len(data))
	return uint32(len(data)), nil
}

// Seek repositions the descriptor offset and returns the new absolute
// offset. Seeking beyond the current size is allowed; the gap reads as
// zeroes once written past.
func (n *NandFS) Seek(fd fs.Fd, offset uint32, whence fs.SeekMode) (uint32, error) {
	h, ok := n.handles.Get(fd)
	if !ok {
		return 0, fs.ErrInvalid
	}

	ctx := context.Background()
	entry, err := n.store.GetEntry(ctx, h.ino)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case fs.SeekSet:
		base = 0
	case fs.SeekCurrent:
		base = int64(h.offset)
	case fs.SeekEnd:
		base = entry.Size
	default:
		return 0, fs.ErrInvalid
	}

	pos := base + int64(offset)
	if pos < 0 || pos > int64(^uint32(0)) {
		return 0, fs.ErrInvalid
	}
	h.offset = uint32(pos)
	return h.offset, nil
}

// GetFileStatus returns the descriptor's current offset and file size.
func (n *NandFS) GetFileStatus(fd fs.Fd) (fs.FileStatus, error) {
	h, ok := n.handles.Get(fd)
	if !ok {
		return fs.FileStatus{}, fs.ErrInvalid
	}
	ctx := context.Background()
	entry, err := n.store.GetEntry(ctx, h.ino)
	if err != nil {
		return fs.FileStatus{}, err
	}
	return fs.FileStatus{Offset: h.offset, Size: uint32(entry.Size)}, nil
}

// createEntry is the shared create path for files and directories.
func (n *NandFS) createEntry(callerUid fs.Uid, callerGid fs.Gid, path string, attr fs.FileAttribute,
	ownerMode, groupMode, otherMode fs.Mode, isFile bool) error {
	if err := common.ValidatePath(path); err != nil {
		return err
	}
	name := common.BaseName(path)
	if name == "" {
		return fs.ErrInvalid
	}

	ctx := context.Background()
	parent, err := n.resolveParent(ctx, path)
	if err != nil {
		return err
	}
	if parent.IsFile {
		return fs.ErrInvalid
	}
	if !parent.ModeFor(callerUid, callerGid).CanWrite() {
		return fs.ErrAccessDenied
	}
	if _, err := n.store.LookupChild(ctx, parent.Ino, name); err == nil {
		return fs.ErrAlreadyExists
	} else if fs.Code(err) != fs.ErrNotFound {
		return err
	}
	count, err := n.store.CountEntries(ctx)
	if err != nil {
		return err
	}
	if count >= TotalInodes {
		return fs.ErrTableFull
	}

	_, err = n.store.InsertEntry(ctx, &Entry{
		ParentIno: parent.Ino,
		Name:      name,
		Uid:       callerUid,
		Gid:       callerGid,
		Attr:      attr,
		OwnerMode: ownerMode,
		GroupMode: groupMode,
		OtherMode: otherMode,
		IsFile:    isFile,
	})
	return err
}

// CreateFile creates an empty file owned by the caller.
func (n *NandFS) CreateFile(callerUid fs.Uid, callerGid fs.Gid, path string, attr fs.FileAttribute,
	ownerMode, groupMode, otherMode fs.Mode) error {
	log.Debugf("CreateFile: path=%s uid=%d gid=%d", path, callerUid, callerGid)
	return n.createEntry(callerUid, callerGid, path, attr, ownerMode, groupMode, otherMode, true)
}

// CreateDirectory creates an empty directory owned by the caller.
func (n *NandFS) CreateDirectory(callerUid fs.Uid, callerGid fs.Gid, path string, attr fs.FileAttribute,
	ownerMode, groupMode, otherMode fs.Mode) error {
	log.Debugf("CreateDirectory: path=%s uid=%d gid=%d", path, callerUid, callerGid)
	return n.createEntry(callerUid, callerGid, path, attr, ownerMode, groupMode, otherMode, false)
}

// subtreeOpen reports whether the entry or anything under it has an open
// descriptor.
func (n *NandFS) subtreeOpen(ctx context.Context, entry *Entry) (bool, error) {
	if n.handles.InoOpen(entry.Ino) {
		return true, nil
	}
	if entry.IsFile {
		return false, nil
	}
	children, err := n.store.ListChildren(ctx, entry.Ino)
	if err != nil {
		return false, err
	}
	for _, child := range children {
		open, err := n.subtreeOpen(ctx, child)
		if err != nil {
			return false, err
		}
		if open {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a file or empty directory. Entries with open descriptors
// fail ErrInUse.
func (n *NandFS) Delete(callerUid fs.Uid, callerGid fs.Gid, path string) error {
	log.Debugf("Delete: path=%s uid=%d gid=%d", path, callerUid, callerGid)
	if err := common.ValidatePath(path); err != nil {
		return err
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return err
	}
	if entry.Ino == RootIno {
		return fs.ErrInvalid
	}
	parent, err := n.store.GetEntry(ctx, entry.ParentIno)
	if err != nil {
		return err
	}
	if !parent.ModeFor(callerUid, callerGid).CanWrite() {
		return fs.ErrAccessDenied
	}
	if !entry.IsFile {
		hasChildren, err := n.store.HasChildren(ctx, entry.Ino)
		if err != nil {
			return err
		}
		if hasChildren {
			return fs.ErrFileNotEmpty
		}
	}
	if n.handles.InoOpen(entry.Ino) {
		return fs.ErrInUse
	}
	return n.store.DeleteEntry(ctx, entry.Ino)
}

// Rename moves an entry to a new path, keeping its table-slot identity. An
// existing destination is replaced only when type-compatible: file over
// file, or empty directory over empty directory.
func (n *NandFS) Rename(callerUid fs.Uid, callerGid fs.Gid, oldPath, newPath string) error {
	log.Debugf("Rename: old=%s new=%s uid=%d gid=%d", oldPath, newPath, callerUid, callerGid)
	if err := common.ValidatePath(oldPath); err != nil {
		return err
	}
	if err := common.ValidatePath(newPath); err != nil {
		return err
	}
	newName := common.BaseName(newPath)
	if newName == "" {
		return fs.ErrInvalid
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, oldPath)
	if err != nil {
		return err
	}
	if entry.Ino == RootIno {
		return fs.ErrInvalid
	}

	oldParent, err := n.store.GetEntry(ctx, entry.ParentIno)
	if err != nil {
		return err
	}
	newParent, err := n.resolveParent(ctx, newPath)
	if err != nil {
		return err
	}
	if newParent.IsFile {
		return fs.ErrInvalid
	}
	if !oldParent.ModeFor(callerUid, callerGid).CanWrite() {
		return fs.ErrAccessDenied
	}
	if !newParent.ModeFor(callerUid, callerGid).CanWrite() {
		return fs.ErrAccessDenied
	}

	// A directory cannot move into its own subtree
	if !entry.IsFile {
		oldNorm := common.NormalizePath(oldPath)
		newNorm := common.NormalizePath(newPath)
		if newNorm == oldNorm || strings.HasPrefix(newNorm, oldNorm+"/") {
			return fs.ErrInvalid
		}
	}

	open, err := n.subtreeOpen(ctx, entry)
	if err != nil {
		return err
	}
	if open {
		return fs.ErrInUse
	}

	// Replace an existing destination only when compatible
	dest, err := n.store.LookupChild(ctx, newParent.Ino, newName)
	if err == nil {
		if dest.Ino == entry.Ino {
			return nil
		}
		if dest.IsFile != entry.IsFile {
			return fs.ErrInvalid
		}
		if !dest.IsFile {
			hasChildren, err := n.store.HasChildren(ctx, dest.Ino)
			if err != nil {
				return err
			}
			if hasChildren {
				return fs.ErrFileNotEmpty
			}
		}
		if n.handles.InoOpen(dest.Ino) {
			return fs.ErrInUse
		}
		if err := n.store.DeleteEntry(ctx, dest.Ino); err != nil {
			return err
		}
	} else if fs.Code(err) != fs.ErrNotFound {
		return err
	}

	return n.store.RenameEntry(ctx, entry.Ino, newParent.Ino, newName)
}

// ReadDirectory lists the immediate children of a directory in insertion
// order.
func (n *NandFS) ReadDirectory(callerUid fs.Uid, callerGid fs.Gid, path string) ([]string, error) {
	log.Debugf("ReadDirectory: path=%s uid=%d gid=%d", path, callerUid, callerGid)
	if err := common.ValidatePath(path); err != nil {
		return nil, err
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	if entry.IsFile {
		return nil, fs.ErrInvalid
	}
	if !entry.ModeFor(callerUid, callerGid).CanRead() {
		return nil, fs.ErrAccessDenied
	}

	children, err := n.store.ListChildren(ctx, entry.Ino)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(children))
	for i, child := range children {
		names[i] = child.Name
	}
	return names, nil
}

// GetMetadata returns an entry's full attribute record. Resolution can
// fail; the entry itself needs no read permission.
func (n *NandFS) GetMetadata(callerUid fs.Uid, callerGid fs.Gid, path string) (fs.Metadata, error) {
	if err := common.ValidatePath(path); err != nil {
		return fs.Metadata{}, err
	}
	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return fs.Metadata{}, err
	}
	return entry.Metadata(), nil
}

// SetMetadata replaces an entry's attribute record. Only the owning uid or
// RootUid may mutate; only RootUid may change ownership.
func (n *NandFS) SetMetadata(callerUid fs.Uid, path string, uid fs.Uid, gid fs.Gid,
	attr fs.FileAttribute, ownerMode, groupMode, otherMode fs.Mode) error {
	log.Debugf("SetMetadata: path=%s caller=%d uid=%d gid=%d", path, callerUid, uid, gid)
	if err := common.ValidatePath(path); err != nil {
		return err
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return err
	}
	if callerUid != fs.RootUid && callerUid != entry.Uid {
		return fs.ErrAccessDenied
	}
	if callerUid != fs.RootUid && (uid != entry.Uid || gid != entry.Gid) {
		return fs.ErrAccessDenied
	}
	return n.store.UpdateEntryMeta(ctx, entry.Ino, uid, gid, attr, ownerMode, groupMode, otherMode)
}

// Shutdown releases the backing store.
func (n *NandFS) Shutdown() error {
	log.Debug("Shutdown")
	return n.store.Close()
}
