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

var statsDir string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show medium usage",
	Long: `Show cluster and inode usage of the whole medium, or of a single
directory subtree with --dir.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsDir, "dir", "", "report a directory subtree instead")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	if statsDir != "" {
		stats, err := fsys.GetDirectoryStats(statsDir)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", statsDir)
		fmt.Printf("  used clusters: %d\n", stats.UsedClusters)
		fmt.Printf("  used inodes:   %d\n", stats.UsedInodes)
		return nil
	}

	stats, err := fsys.GetNandStats()
	if err != nil {
		return err
	}
	fmt.Printf("cluster size:      %d\n", stats.ClusterSize)
	fmt.Printf("free clusters:     %d\n", stats.FreeClusters)
	fmt.Printf("used clusters:     %d\n", stats.UsedClusters)
	fmt.Printf("bad clusters:      %d\n", stats.BadClusters)
	fmt.Printf("reserved clusters: %d\n", stats.ReservedClusters)
	fmt.Printf("free inodes:       %d\n", stats.FreeInodes)
	fmt.Printf("used inodes:       %d\n", stats.UsedInodes)
	return nil
}
