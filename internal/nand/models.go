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
	"github.com/uptrace/bun"

	"nandfs/internal/fs"
)

// Bun ORM models for the NAND image tables.

// SchemaInfoModel represents the schema_info table
type SchemaInfoModel struct {
	bun.BaseModel `bun:"table:schema_info"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// SuperblockModel represents the superblock key/value table
type SuperblockModel struct {
	bun.BaseModel `bun:"table:superblock"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// EntryModel represents the entries table
type EntryModel struct {
	bun.BaseModel `bun:"table:entries"`

	Ino       int64  `bun:"ino,pk"`
	ParentIno int64  `bun:"parent_ino,notnull"`
	Name      string `bun:"name,notnull"`
	Uid       int64  `bun:"uid,notnull"`
	Gid       int64  `bun:"gid,notnull"`
	Attr      int64  `bun:"attr,notnull"`
	OwnerMode int64  `bun:"owner_mode,notnull"`
	GroupMode int64  `bun:"group_mode,notnull"`
	OtherMode int64  `bun:"other_mode,notnull"`
	IsFile    bool   `bun:"is_file,notnull"`
	Size      int64  `bun:"size,notnull"`
	Seq       int64  `bun:"seq,notnull"`
}

// ContentModel represents the content table (one row per cluster)
type ContentModel struct {
	bun.BaseModel `bun:"table:content"`

	Ino        int64  `bun:"ino,pk"`
	ClusterIdx int64  `bun:"cluster_idx,pk"`
	Data       []byte `bun:"data,notnull"`
}

// Entry is the in-memory form of a filesystem entry.
type Entry struct {
	Ino       int64
	ParentIno int64
	Name      string
	Uid       fs.Uid
	Gid       fs.Gid
	Attr      fs.FileAttribute
	OwnerMode fs.Mode
	GroupMode fs.Mode
	OtherMode fs.Mode
	IsFile    bool
	Size      int64
	Seq       int64
}

// ToEntry converts an EntryModel to an Entry
func (m *EntryModel) ToEntry() *Entry {
	return &Entry{
		Ino:       m.Ino,
		ParentIno: m.ParentIno,
		Name:      m.Name,
		Uid:       fs.Uid(m.Uid),
		Gid:       fs.Gid(m.Gid),
		Attr:      fs.FileAttribute(m.Attr),
		OwnerMode: fs.Mode(m.OwnerMode),
		GroupMode: fs.Mode(m.GroupMode),
		OtherMode: fs.Mode(m.OtherMode),
		IsFile:    m.IsFile,
		Size:      m.Size,
		Seq:       m.Seq,
	}
}

// Model converts an Entry back to its table representation
func (e *Entry) Model() *EntryModel {
	return &EntryModel{
		Ino:       e.Ino,
		ParentIno: e.ParentIno,
		Name:      e.Name,
		Uid:       int64(e.Uid),
		Gid:       int64(e.Gid),
		Attr:      int64(e.Attr),
		OwnerMode: int64(e.OwnerMode),
		GroupMode: int64(e.GroupMode),
		OtherMode: int64(e.OtherMode),
		IsFile:    e.IsFile,
		Size:      e.Size,
		Seq:       e.Seq,
	}
}

// ModeFor selects the access mode an identity is granted on this entry:
// owner mode when the uid matches, else group mode when the gid matches,
// else other mode. Owner takes precedence even when it grants less than
// group or other would.
func (e *Entry) ModeFor(uid fs.Uid, gid fs.Gid) fs.Mode {
	if uid == e.Uid {
		return e.OwnerMode
	}
	if gid == e.Gid {
		return e.GroupMode
	}
	return e.OtherMode
}

// Metadata returns the entry's attribute record in API form.
func (e *Entry) Metadata() fs.Metadata {
	return fs.Metadata{
		Uid:       e.Uid,
		Gid:       e.Gid,
		Attribute: e.Attr,
		OwnerMode: e.OwnerMode,
		GroupMode: e.GroupMode,
		OtherMode: e.OtherMode,
		IsFile:    e.IsFile,
		Size:      uint32(e.Size),
		FstIndex:  uint16(e.Ino),
	}
}
