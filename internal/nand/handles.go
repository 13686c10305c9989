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

import "nandfs/internal/fs"

// openHandle represents an open file descriptor
type openHandle struct {
	ino    int64
	path   string
	mode   fs.Mode
	offset uint32
}

// HandleTable is the fixed-size descriptor table. Descriptors are slot
// indices; allocation always picks the lowest free slot, so a released fd
// is the next one handed out. The engine is single-owner, so the table does
// no locking of its own.
type HandleTable struct {
	slots [MaxOpenHandles]*openHandle
}

// NewHandleTable creates an empty descriptor table
func NewHandleTable() *HandleTable {
	return &HandleTable{}
}

// Allocate claims the lowest free slot. A full table fails ErrNoFreeHandle.
func (t *HandleTable) Allocate(ino int64, path string, mode fs.Mode) (fs.Fd, error) {
	for i := range t.slots {
		if t.slots[i] == nil {
			t.slots[i] = &openHandle{ino: ino, path: path, mode: mode}
			return fs.Fd(i), nil
		}
	}
	return 0, fs.ErrNoFreeHandle
}

// Get retrieves an open descriptor's state
func (t *HandleTable) Get(fd fs.Fd) (*openHandle, bool) {
	if int(fd) >= len(t.slots) || t.slots[fd] == nil {
		return nil, false
	}
	return t.slots[fd], true
}

// Release frees a descriptor slot. Releasing a closed slot fails ErrInvalid.
func (t *HandleTable) Release(fd fs.Fd) error {
	if int(fd) >= len(t.slots) || t.slots[fd] == nil {
		return fs.ErrInvalid
	}
	t.slots[fd] = nil
	return nil
}

// Clear drops all open descriptors, returning how many were open
func (t *HandleTable) Clear() int {
	count := 0
	for i := range t.slots {
		if t.slots[i] != nil {
			t.slots[i] = nil
			count++
		}
	}
	return count
}

// InoOpen reports whether any descriptor refers to the given entry slot
func (t *HandleTable) InoOpen(ino int64) bool {
	for i := range t.slots {
		if t.slots[i] != nil && t.slots[i].ino == ino {
			return true
		}
	}
	return false
}

// OpenCount returns the number of occupied descriptor slots
func (t *HandleTable) OpenCount() int {
	count := 0
	for i := range t.slots {
		if t.slots[i] != nil {
			count++
		}
	}
	return count
}

// Each calls fn for every open descriptor in fd order
func (t *HandleTable) Each(fn func(fd fs.Fd, h *openHandle)) {
	for i := range t.slots {
		if t.slots[i] != nil {
			fn(fs.Fd(i), t.slots[i])
		}
	}
}
