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
	"context"

	"nandfs/internal/common"
	"nandfs/internal/fs"
)

// GetNandStats reports global cluster and inode usage of the medium.
func (n *NandFS) GetNandStats() (fs.NandStats, error) {
	ctx := context.Background()

	used, err := n.store.UsedClusters(ctx)
	if err != nil {
		return fs.NandStats{}, err
	}
	bad, err := n.store.BadClusterCount(ctx)
	if err != nil {
		return fs.NandStats{}, err
	}
	count, err := n.store.CountEntries(ctx)
	if err != nil {
		return fs.NandStats{}, err
	}

	return fs.NandStats{
		ClusterSize:      ClusterSize,
		FreeClusters:     uint32(TotalClusters - ReservedClusters - bad - used),
		UsedClusters:     uint32(used),
		BadClusters:      uint32(bad),
		ReservedClusters: ReservedClusters,
		FreeInodes:       uint32(TotalInodes - count),
		UsedInodes:       uint32(count),
	}, nil
}

// GetDirectoryStats reports cluster and inode usage under a subtree. The
// directory itself counts as one inode.
func (n *NandFS) GetDirectoryStats(path string) (fs.DirectoryStats, error) {
	if err := common.ValidatePath(path); err != nil {
		return fs.DirectoryStats{}, err
	}

	ctx := context.Background()
	entry, err := n.resolve(ctx, path)
	if err != nil {
		return fs.DirectoryStats{}, err
	}
	if entry.IsFile {
		return fs.DirectoryStats{}, fs.ErrInvalid
	}

	var clusters, inodes int64
	if err := n.collectSubtreeUsage(ctx, entry, &clusters, &inodes); err != nil {
		return fs.DirectoryStats{}, err
	}
	return fs.DirectoryStats{
		UsedClusters: uint32(clusters),
		UsedInodes:   uint32(inodes),
	}, nil
}

func (n *NandFS) collectSubtreeUsage(ctx context.Context, entry *Entry, clusters, inodes *int64) error {
	*inodes++
	if entry.IsFile {
		*clusters += ClustersForSize(entry.Size)
		return nil
	}
	children, err := n.store.ListChildren(ctx, entry.Ino)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := n.collectSubtreeUsage(ctx, child, clusters, inodes); err != nil {
			return err
		}
	}
	return nil
}
