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
	"fmt"
	"os"

	"nandfs/internal/config"
	"nandfs/internal/fs"
)

// Options configures MakeFileSystem.
type Options struct {
	// ImagePath overrides the settings-derived image path for the
	// configured location. Ignored for session filesystems.
	ImagePath string
	// Context selects the busy_timeout profile.
	Context DBContext
}

// MakeFileSystem binds an engine to a backing location. Configured opens
// the durable image named by settings (exclusively locked; a second opener
// fails ErrInUse). Session creates a throwaway image that is deleted on
// Shutdown.
func MakeFileSystem(location fs.Location, opts Options) (fs.FileSystem, error) {
	switch location {
	case fs.LocationConfigured:
		path := opts.ImagePath
		if path == "" {
			settings, err := config.LoadSettings()
			if err != nil {
				return nil, err
			}
			path = settings.ImagePath()
		}
		if err := config.EnsureConfigDir(); err != nil {
			return nil, err
		}
		store, err := OpenStore(path, StoreOptions{
			Context: opts.Context,
			Locked:  true,
		})
		if err != nil {
			return nil, err
		}
		return New(store)

	case fs.LocationSession:
		f, err := os.CreateTemp("", "nandfs-session-*.img")
		if err != nil {
			return nil, err
		}
		path := f.Name()
		f.Close()
		os.Remove(path) // libsql creates the file itself
		store, err := OpenStore(path, StoreOptions{
			Context:   opts.Context,
			Ephemeral: true,
		})
		if err != nil {
			return nil, err
		}
		return New(store)

	default:
		return nil, fmt.Errorf("unknown location: %d", location)
	}
}
