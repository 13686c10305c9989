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

import "errors"

// ResultCode is the closed set of outcomes a filesystem operation can have.
// Success is represented by a nil error; every failure returned across the
// API boundary is one of the codes below. The numeric values are part of the
// snapshot wire format and must not be reordered.
type ResultCode uint32

const (
	Success ResultCode = iota
	ErrInvalid
	ErrAccessDenied
	ErrSuperblockWriteFailed
	ErrSuperblockInitFailed
	ErrAlreadyExists
	ErrNotFound
	ErrTableFull
	ErrNoFreeSpace
	ErrNoFreeHandle
	ErrTooManyPathComponents
	ErrInUse
	ErrBadBlock
	ErrEccError
	ErrCriticalEccError
	ErrFileNotEmpty
	ErrCheckFailed
	ErrUnknown
	ErrShortRead
)

var resultStrings = map[ResultCode]string{
	Success:                  "success",
	ErrInvalid:               "invalid argument",
	ErrAccessDenied:          "access denied",
	ErrSuperblockWriteFailed: "superblock write failed",
	ErrSuperblockInitFailed:  "superblock init failed",
	ErrAlreadyExists:         "already exists",
	ErrNotFound:              "not found",
	ErrTableFull:             "entry table full",
	ErrNoFreeSpace:           "no free space",
	ErrNoFreeHandle:          "no free handle",
	ErrTooManyPathComponents: "too many path components",
	ErrInUse:                 "in use",
	ErrBadBlock:              "bad block",
	ErrEccError:              "ecc error",
	ErrCriticalEccError:      "critical ecc error",
	ErrFileNotEmpty:          "file not empty",
	ErrCheckFailed:           "check failed",
	ErrUnknown:               "unknown error",
	ErrShortRead:             "short read",
}

func (c ResultCode) Error() string {
	if s, ok := resultStrings[c]; ok {
		return s
	}
	return "unknown error"
}

// Code maps an error back into the closed result set. A nil error maps to
// Success; anything that is not (or does not wrap) a ResultCode maps to
// ErrUnknown.
func Code(err error) ResultCode {
	if err == nil {
		return Success
	}
	var code ResultCode
	if errors.As(err, &code) {
		return code
	}
	return ErrUnknown
}
