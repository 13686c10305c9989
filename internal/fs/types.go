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

package fs

// Uid identifies the owning user of an entry. Opaque to the engine beyond
// equality comparison; RootUid may change ownership via SetMetadata.
type Uid uint32

// Gid identifies the owning group of an entry.
type Gid uint16

// Fd is an open file descriptor id within the engine's handle table.
type Fd uint32

// FileAttribute is a free-form attribute byte carried on every entry.
type FileAttribute uint8

// RootUid is the privileged identity for metadata mutation.
const RootUid Uid = 0

// Mode is a 2-bit access capability: bit0=read, bit1=write.
type Mode uint8

const (
	ModeNone      Mode = 0
	ModeRead      Mode = 1
	ModeWrite     Mode = 2
	ModeReadWrite Mode = 3
)

// CanRead returns true if the mode grants read access.
func (m Mode) CanRead() bool {
	return m&ModeRead != 0
}

// CanWrite returns true if the mode grants write access.
func (m Mode) CanWrite() bool {
	return m&ModeWrite != 0
}

// Includes returns true if every bit requested is granted by m.
func (m Mode) Includes(requested Mode) bool {
	return m&requested == requested
}

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeReadWrite:
		return "rw"
	}
	return "invalid"
}

// SeekMode selects the base position for Seek.
type SeekMode uint32

const (
	SeekSet     SeekMode = 0
	SeekCurrent SeekMode = 1
	SeekEnd     SeekMode = 2
)

// Metadata is the full descriptive record of an entry.
type Metadata struct {
	Uid       Uid
	Gid       Gid
	Attribute FileAttribute
	OwnerMode Mode
	GroupMode Mode
	OtherMode Mode
	IsFile    bool
	Size      uint32 // meaningful only for files
	FstIndex  uint16 // table-slot index of the entry
}

// NandStats reports global usage of the emulated flash medium.
type NandStats struct {
	ClusterSize      uint32
	FreeClusters     uint32
	UsedClusters     uint32
	BadClusters      uint32
	ReservedClusters uint32
	FreeInodes       uint32
	UsedInodes       uint32
}

// DirectoryStats reports usage under a directory subtree.
type DirectoryStats struct {
	UsedClusters uint32
	UsedInodes   uint32
}

// FileStatus is the current position and size of an open file.
type FileStatus struct {
	Offset uint32
	Size   uint32
}

// Location selects which backing store the factory binds an engine to.
type Location int

const (
	// LocationConfigured is the durable, user-persistent image.
	LocationConfigured Location = iota
	// LocationSession is an ephemeral per-run image.
	LocationSession
)
