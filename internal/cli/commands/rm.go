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

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or empty directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var mvCmd = &cobra.Command{
	Use:   "mv <old> <new>",
	Short: "Move or rename an entry",
	Long: `Move or rename an entry, preserving its entry-table slot. An existing
destination is replaced only when compatible: file over file, or empty
directory over empty directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	if err := fsys.Delete(callerUid(), callerGid(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	if err := fsys.Rename(callerUid(), callerGid(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Renamed %s -> %s\n", args[0], args[1])
	return nil
}
