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

package commands

import (
	"fmt"

	"nandfs/internal/fs"
)

// parseMode parses an access mode flag value: none, r, w, or rw.
func parseMode(s string) (fs.Mode, error) {
	switch s {
	case "none", "":
		return fs.ModeNone, nil
	case "r":
		return fs.ModeRead, nil
	case "w":
		return fs.ModeWrite, nil
	case "rw":
		return fs.ModeReadWrite, nil
	}
	return fs.ModeNone, fmt.Errorf("invalid mode %q (want none, r, w, or rw)", s)
}
