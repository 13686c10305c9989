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

import (
	"bytes"
	"encoding/binary"
)

// FileHandle owns an open descriptor. Close is idempotent; Release detaches
// the descriptor so the caller can manage its lifetime directly.
type FileHandle struct {
	fs    FileSystem
	fd    Fd
	bound bool
}

// NewFileHandle wraps an already-open descriptor. The handle owns fd until
// Close or Release.
func NewFileHandle(filesystem FileSystem, fd Fd) *FileHandle {
	return &FileHandle{fs: filesystem, fd: fd, bound: true}
}

// Fd returns the underlying descriptor id.
func (h *FileHandle) Fd() Fd {
	return h.fd
}

// Close closes the descriptor if the handle still owns it. Calling Close
// again, or after Release, is a no-op.
func (h *FileHandle) Close() error {
	if !h.bound {
		return nil
	}
	h.bound = false
	return h.fs.Close(h.fd)
}

// Release gives up ownership of the descriptor without closing it and
// returns it. The caller becomes responsible for closing the fd.
func (h *FileHandle) Release() Fd {
	h.bound = false
	return h.fd
}

// Read reads up to size bytes from the current offset.
func (h *FileHandle) Read(size uint32) ([]byte, error) {
	return h.fs.ReadBytes(h.fd, size)
}

// Write writes data at the current offset and returns the bytes written.
func (h *FileHandle) Write(data []byte) (uint32, error) {
	return h.fs.WriteBytes(h.fd, data)
}

// Seek repositions the handle's offset.
func (h *FileHandle) Seek(offset uint32, whence SeekMode) (uint32, error) {
	return h.fs.Seek(h.fd, offset, whence)
}

// GetStatus returns the handle's current offset and the file size.
func (h *FileHandle) GetStatus() (FileStatus, error) {
	return h.fs.GetFileStatus(h.fd)
}

// ReadElements reads count fixed-size values in big-endian byte order. If
// the file ends before the full run is available the read fails with
// ErrShortRead and the offset is left where the underlying read stopped.
func ReadElements[T any](h *FileHandle, count uint32) ([]T, error) {
	var zero T
	elemSize := binary.Size(zero)
	if elemSize <= 0 {
		return nil, ErrInvalid
	}
	total := uint32(elemSize) * count
	data, err := h.Read(total)
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != total {
		return nil, ErrShortRead
	}
	out := make([]T, count)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &out); err != nil {
		return nil, ErrShortRead
	}
	return out, nil
}

// WriteElements writes values as big-endian fixed-size records. A partial
// write fails with ErrShortRead.
func WriteElements[T any](h *FileHandle, values []T) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, values); err != nil {
		return ErrInvalid
	}
	n, err := h.Write(buf.Bytes())
	if err != nil {
		return err
	}
	if n != uint32(buf.Len()) {
		return ErrShortRead
	}
	return nil
}
