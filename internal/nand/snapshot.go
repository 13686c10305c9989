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

package nand

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"nandfs/internal/fs"
)

// Snapshot wire format, big-endian throughout:
//
//	magic "NAND" | version u16 | flags u16
//	format_uid u32 | nand_id [16]byte | next_seq u64 | bad_clusters u32
//	entry count u32, then per entry (ordered by ino):
//	  ino u32 | parent u32 (root parent = 0xFFFFFFFF) | name (u8 len + bytes)
//	  uid u32 | gid u16 | attr u8 | owner u8 | group u8 | other u8
//	  is_file u8 | size u32 | seq u64
//	cluster count u32, then per cluster (ordered by ino, idx):
//	  ino u32 | cluster_idx u32 | data (u32 len + bytes)
//	handle count u32, then per handle (ordered by fd):
//	  fd u32 | ino u32 | path (u8 len + bytes) | mode u8 | offset u32
const (
	snapshotVersion    = 1
	snapshotRootParent = 0xFFFFFFFF
)

var snapshotMagic = [4]byte{'N', 'A', 'N', 'D'}

type snapshotWriter struct {
	buf bytes.Buffer
}

func (w *snapshotWriter) write(v any) {
	binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *snapshotWriter) writeString8(s string) {
	w.write(uint8(len(s)))
	w.buf.WriteString(s)
}

func (w *snapshotWriter) writeBytes32(b []byte) {
	w.write(uint32(len(b)))
	w.buf.Write(b)
}

type snapshotReader struct {
	r *bytes.Reader
}

func (r *snapshotReader) read(v any) error {
	return binary.Read(r.r, binary.BigEndian, v)
}

func (r *snapshotReader) readString8() (string, error) {
	var n uint8
	if err := r.read(&n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *snapshotReader) readBytes32() ([]byte, error) {
	var n uint32
	if err := r.read(&n); err != nil {
		return nil, err
	}
	// The length prefix is untrusted; never allocate more than the reader
	// can still provide.
	if int64(n) > int64(r.r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Snapshot serializes the full engine state: superblock, entry table,
// cluster content, and the open-handle table.
func (n *NandFS) Snapshot() ([]byte, error) {
	log.Debug("Snapshot")
	ctx := context.Background()

	formatUid, err := n.store.FormatUid(ctx)
	if err != nil {
		return nil, err
	}
	nandID, err := n.store.NandID(ctx)
	if err != nil {
		return nil, err
	}
	var id uuid.UUID
	if nandID != "" {
		id, err = uuid.Parse(nandID)
		if err != nil {
			return nil, err
		}
	}
	nextSeqStr, err := n.store.GetSuperblockValue(ctx, superblockNextSeq)
	if err != nil {
		return nil, err
	}
	nextSeq := int64(0)
	if nextSeqStr != "" {
		nextSeq, err = strconv.ParseInt(nextSeqStr, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	bad, err := n.store.BadClusterCount(ctx)
	if err != nil {
		return nil, err
	}

	var entries []EntryModel
	if err := n.store.bun.NewSelect().Model(&entries).Order("ino ASC").Scan(ctx); err != nil {
		return nil, err
	}
	var clusters []ContentModel
	if err := n.store.bun.NewSelect().Model(&clusters).
		Order("ino ASC").Order("cluster_idx ASC").Scan(ctx); err != nil {
		return nil, err
	}

	w := &snapshotWriter{}
	w.write(snapshotMagic)
	w.write(uint16(snapshotVersion))
	w.write(uint16(0)) // flags, reserved
	w.write(uint32(formatUid))
	w.write(id)
	w.write(uint64(nextSeq))
	w.write(uint32(bad))

	w.write(uint32(len(entries)))
	for _, e := range entries {
		w.write(uint32(e.Ino))
		if e.ParentIno == RootParentIno {
			w.write(uint32(snapshotRootParent))
		} else {
			w.write(uint32(e.ParentIno))
		}
		w.writeString8(e.Name)
		w.write(uint32(e.Uid))
		w.write(uint16(e.Gid))
		w.write(uint8(e.Attr))
		w.write(uint8(e.OwnerMode))
		w.write(uint8(e.GroupMode))
		w.write(uint8(e.OtherMode))
		if e.IsFile {
			w.write(uint8(1))
		} else {
			w.write(uint8(0))
		}
		w.write(uint32(e.Size))
		w.write(uint64(e.Seq))
	}

	w.write(uint32(len(clusters)))
	for _, c := range clusters {
		w.write(uint32(c.Ino))
		w.write(uint32(c.ClusterIdx))
		w.writeBytes32(c.Data)
	}

	w.write(uint32(n.handles.OpenCount()))
	n.handles.Each(func(fd fs.Fd, h *openHandle) {
		w.write(uint32(fd))
		w.write(uint32(h.ino))
		w.writeString8(h.path)
		w.write(uint8(h.mode))
		w.write(h.offset)
	})

	return w.buf.Bytes(), nil
}

// RestoreSnapshot replaces the engine state with a previously captured
// snapshot. A corrupt or incompatible blob fails ErrCheckFailed and leaves
// the current state intact.
func (n *NandFS) RestoreSnapshot(data []byte) error {
	log.Debugf("RestoreSnapshot: %d bytes", len(data))

	r := &snapshotReader{r: bytes.NewReader(data)}

	var magic [4]byte
	if err := r.read(&magic); err != nil || magic != snapshotMagic {
		return fs.ErrCheckFailed
	}
	var version, flags uint16
	if err := r.read(&version); err != nil || version != snapshotVersion {
		return fs.ErrCheckFailed
	}
	if err := r.read(&flags); err != nil {
		return fs.ErrCheckFailed
	}

	var formatUid uint32
	var id uuid.UUID
	var nextSeq uint64
	var bad uint32
	if err := r.read(&formatUid); err != nil {
		return fs.ErrCheckFailed
	}
	if err := r.read(&id); err != nil {
		return fs.ErrCheckFailed
	}
	if err := r.read(&nextSeq); err != nil {
		return fs.ErrCheckFailed
	}
	if err := r.read(&bad); err != nil {
		return fs.ErrCheckFailed
	}

	var entryCount uint32
	if err := r.read(&entryCount); err != nil || entryCount > TotalInodes {
		return fs.ErrCheckFailed
	}
	entries := make([]EntryModel, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		var e EntryModel
		var ino, parent, euid, size uint32
		var gid uint16
		var attr, owner, group, other, isFile uint8
		var seq uint64
		if err := r.read(&ino); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&parent); err != nil {
			return fs.ErrCheckFailed
		}
		name, err := r.readString8()
		if err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&euid); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&gid); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&attr); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&owner); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&group); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&other); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&isFile); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&size); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&seq); err != nil {
			return fs.ErrCheckFailed
		}
		e.Ino = int64(ino)
		if parent == snapshotRootParent {
			e.ParentIno = RootParentIno
		} else {
			e.ParentIno = int64(parent)
		}
		e.Name = name
		e.Uid = int64(euid)
		e.Gid = int64(gid)
		e.Attr = int64(attr)
		e.OwnerMode = int64(owner)
		e.GroupMode = int64(group)
		e.OtherMode = int64(other)
		e.IsFile = isFile != 0
		e.Size = int64(size)
		e.Seq = int64(seq)
		entries = append(entries, e)
	}

	// Content rows can never exceed the medium's cluster count; a larger
	// value is corruption, not state.
	var clusterCount uint32
	if err := r.read(&clusterCount); err != nil || clusterCount > TotalClusters {
		return fs.ErrCheckFailed
	}
	clusters := make([]ContentModel, 0, clusterCount)
	for i := uint32(0); i < clusterCount; i++ {
		var ino, idx uint32
		if err := r.read(&ino); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&idx); err != nil {
			return fs.ErrCheckFailed
		}
		chunk, err := r.readBytes32()
		if err != nil {
			return fs.ErrCheckFailed
		}
		clusters = append(clusters, ContentModel{Ino: int64(ino), ClusterIdx: int64(idx), Data: chunk})
	}

	var handleCount uint32
	if err := r.read(&handleCount); err != nil || handleCount > MaxOpenHandles {
		return fs.ErrCheckFailed
	}
	type savedHandle struct {
		fd     fs.Fd
		ino    int64
		path   string
		mode   fs.Mode
		offset uint32
	}
	saved := make([]savedHandle, 0, handleCount)
	for i := uint32(0); i < handleCount; i++ {
		var fd, ino, offset uint32
		var mode uint8
		if err := r.read(&fd); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&ino); err != nil {
			return fs.ErrCheckFailed
		}
		path, err := r.readString8()
		if err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&mode); err != nil {
			return fs.ErrCheckFailed
		}
		if err := r.read(&offset); err != nil {
			return fs.ErrCheckFailed
		}
		if fd >= MaxOpenHandles {
			return fs.ErrCheckFailed
		}
		saved = append(saved, savedHandle{fs.Fd(fd), int64(ino), path, fs.Mode(mode), offset})
	}
	if r.r.Len() != 0 {
		return fs.ErrCheckFailed
	}

	ctx := context.Background()
	err := n.store.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ContentModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*EntryModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*SuperblockModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if err := n.store.setSuperblockValueWith(tx, ctx, superblockNandID, id.String()); err != nil {
			return err
		}
		if err := n.store.setSuperblockValueWith(tx, ctx, superblockFormatUid, strconv.FormatUint(uint64(formatUid), 10)); err != nil {
			return err
		}
		if err := n.store.setSuperblockValueWith(tx, ctx, superblockNextSeq, strconv.FormatUint(nextSeq, 10)); err != nil {
			return err
		}
		if bad > 0 {
			if err := n.store.setSuperblockValueWith(tx, ctx, superblockBadBlocks, strconv.FormatUint(uint64(bad), 10)); err != nil {
				return err
			}
		}
		if len(entries) > 0 {
			if _, err := tx.NewInsert().Model(&entries).Exec(ctx); err != nil {
				return err
			}
		}
		if len(clusters) > 0 {
			if _, err := tx.NewInsert().Model(&clusters).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	n.handles.Clear()
	for _, h := range saved {
		n.handles.slots[h.fd] = &openHandle{ino: h.ino, path: h.path, mode: h.mode, offset: h.offset}
	}
	return nil
}
