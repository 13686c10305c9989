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

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Erase the image and reinitialize an empty root",
	Long: `Erase all entries and content in the image and reinitialize an empty
root directory owned by the caller uid. This is irreversible.`,
	Args: cobra.NoArgs,
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	if err := fsys.Format(callerUid()); err != nil {
		return err
	}
	fmt.Println("Formatted")
	return nil
}
