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
)

var lsLong bool

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List directory contents in insertion order",
	Args:  cobra.ExactArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show metadata per entry")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	path := args[0]
	names, err := fsys.ReadDirectory(callerUid(), callerGid(), path)
	if err != nil {
		return err
	}

	for _, name := range names {
		if !lsLong {
			fmt.Println(name)
			continue
		}
		child := path
		if child == "/" {
			child = "/" + name
		} else {
			child = child + "/" + name
		}
		meta, err := fsys.GetMetadata(callerUid(), callerGid(), child)
		if err != nil {
			return err
		}
		kind := "d"
		if meta.IsFile {
			kind = "f"
		}
		fmt.Printf("%s %4s/%-4s/%-4s uid=%d gid=%d attr=0x%02x size=%d %s\n",
			kind, meta.OwnerMode, meta.GroupMode, meta.OtherMode,
			meta.Uid, meta.Gid, meta.Attribute, meta.Size, name)
	}
	return nil
}
