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

	"github.com/spf13/cobra"

	"nandfs/internal/fs"
)

var (
	createAttr  uint8
	createOwner string
	createGroup string
	createOther string
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(args[0], false)
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <path>",
	Short: "Create an empty file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(args[0], true)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{mkdirCmd, touchCmd} {
		cmd.Flags().Uint8Var(&createAttr, "attr", 0, "attribute byte")
		cmd.Flags().StringVar(&createOwner, "owner", "rw", "owner mode (none, r, w, rw)")
		cmd.Flags().StringVar(&createGroup, "group", "rw", "group mode (none, r, w, rw)")
		cmd.Flags().StringVar(&createOther, "other", "none", "other mode (none, r, w, rw)")
		rootCmd.AddCommand(cmd)
	}
}

func runCreate(path string, isFile bool) error {
	owner, err := parseMode(createOwner)
	if err != nil {
		return err
	}
	group, err := parseMode(createGroup)
	if err != nil {
		return err
	}
	other, err := parseMode(createOther)
	if err != nil {
		return err
	}

	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	attr := fs.FileAttribute(createAttr)
	if isFile {
		err = fsys.CreateFile(callerUid(), callerGid(), path, attr, owner, group, other)
	} else {
		err = fsys.CreateDirectory(callerUid(), callerGid(), path, attr, owner, group, other)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}
