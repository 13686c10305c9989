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

package common

import (
	"strings"

	"nandfs/internal/fs"
)

// Path shape limits of the emulated flash filesystem. These bound the
// on-medium entry table, not the host filesystem.
const (
	// MaxPathLength is the longest accepted path, including the leading '/'.
	MaxPathLength = 64
	// MaxComponentLength is the longest accepted single path component.
	MaxComponentLength = 12
	// MaxPathDepth is the deepest nesting below the root.
	MaxPathDepth = 8
)

// NormalizePath cleans a path: collapses duplicate slashes and strips a
// trailing slash. The root stays "/". Relative paths are returned unchanged
// in their leading byte so validation can reject them.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			kept = append(kept, p)
		}
	}
	joined := strings.Join(kept, "/")
	if strings.HasPrefix(path, "/") {
		return "/" + joined
	}
	return joined
}

// SplitPath splits a normalized absolute path into its components. The root
// has no components.
func SplitPath(path string) []string {
	path = NormalizePath(path)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ParentPath returns the parent directory of an absolute path. The parent
// of the root is the root.
func ParentPath(path string) string {
	parts := SplitPath(path)
	if len(parts) <= 1 {
		return "/"
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/")
}

// BaseName returns the final component of a path, or "" for the root.
func BaseName(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// ValidatePath rejects paths the entry table cannot represent. A path must
// be absolute, at most MaxPathLength bytes, with each component at most
// MaxComponentLength bytes; nesting deeper than MaxPathDepth fails
// ErrTooManyPathComponents.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fs.ErrInvalid
	}
	// Limits apply to the normalized form so every spelling of a path
	// validates the same way.
	norm := NormalizePath(path)
	if len(norm) > MaxPathLength {
		return fs.ErrInvalid
	}
	parts := SplitPath(norm)
	for _, p := range parts {
		if len(p) > MaxComponentLength {
			return fs.ErrInvalid
		}
	}
	if len(parts) > MaxPathDepth {
		return fs.ErrTooManyPathComponents
	}
	return nil
}
