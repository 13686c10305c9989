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
	"os"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <host-file>",
	Short: "Save a snapshot of the filesystem state",
	Long: `Serialize the full filesystem state (entry table, content, open
handles) into a snapshot blob on the host.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <host-file>",
	Short: "Restore filesystem state from a snapshot",
	Long: `Replace the filesystem state with a previously saved snapshot. A
corrupt or incompatible snapshot is rejected and the current state is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	data, err := fsys.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return err
	}
	fmt.Printf("Saved snapshot (%d bytes) to %s\n", len(data), args[0])
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	if err := fsys.RestoreSnapshot(data); err != nil {
		return err
	}
	fmt.Printf("Restored snapshot from %s\n", args[0])
	return nil
}
