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
	metaSet   bool
	metaUid   uint32
	metaGid   uint16
	metaAttr  uint8
	metaOwner string
	metaGroup string
	metaOther string
)

var metaCmd = &cobra.Command{
	Use:   "meta <path>",
	Short: "Show or set entry metadata",
	Long: `Show an entry's attribute record, or with --set replace it. Setting
requires the caller to own the entry (or be uid 0); changing ownership
requires uid 0.`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	metaCmd.Flags().BoolVar(&metaSet, "set", false, "replace the attribute record")
	metaCmd.Flags().Uint32Var(&metaUid, "owner-uid", 0, "new owning uid (with --set)")
	metaCmd.Flags().Uint16Var(&metaGid, "owner-gid", 0, "new owning gid (with --set)")
	metaCmd.Flags().Uint8Var(&metaAttr, "attr", 0, "attribute byte (with --set)")
	metaCmd.Flags().StringVar(&metaOwner, "owner", "rw", "owner mode (with --set)")
	metaCmd.Flags().StringVar(&metaGroup, "group", "rw", "group mode (with --set)")
	metaCmd.Flags().StringVar(&metaOther, "other", "none", "other mode (with --set)")
	rootCmd.AddCommand(metaCmd)
}

func runMeta(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	path := args[0]
	if metaSet {
		owner, err := parseMode(metaOwner)
		if err != nil {
			return err
		}
		group, err := parseMode(metaGroup)
		if err != nil {
			return err
		}
		other, err := parseMode(metaOther)
		if err != nil {
			return err
		}
		return fsys.SetMetadata(callerUid(), path,
			fs.Uid(metaUid), fs.Gid(metaGid), fs.FileAttribute(metaAttr),
			owner, group, other)
	}

	meta, err := fsys.GetMetadata(callerUid(), callerGid(), path)
	if err != nil {
		return err
	}
	kind := "directory"
	if meta.IsFile {
		kind = "file"
	}
	fmt.Printf("%s: %s\n", path, kind)
	fmt.Printf("  uid=%d gid=%d attr=0x%02x\n", meta.Uid, meta.Gid, meta.Attribute)
	fmt.Printf("  modes: owner=%s group=%s other=%s\n", meta.OwnerMode, meta.GroupMode, meta.OtherMode)
	if meta.IsFile {
		fmt.Printf("  size=%d\n", meta.Size)
	}
	fmt.Printf("  fst index=%d\n", meta.FstIndex)
	return nil
}
