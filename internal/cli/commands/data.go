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

	"nandfs/internal/fs"
)

var importCmd = &cobra.Command{
	Use:   "import <host-file> <path>",
	Short: "Copy a host file into the filesystem",
	Long: `Copy a host file into the filesystem at path. The destination file is
created owned by the caller if it does not exist.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <path> <host-file>",
	Short: "Copy a file out to the host",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	hostPath, path := args[0], args[1]
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	err = fsys.CreateFile(callerUid(), callerGid(), path, 0,
		fs.ModeReadWrite, fs.ModeReadWrite, fs.ModeNone)
	if err != nil && fs.Code(err) != fs.ErrAlreadyExists {
		return err
	}

	handle, err := fsys.OpenFile(callerUid(), callerGid(), path, fs.ModeWrite)
	if err != nil {
		return err
	}
	defer handle.Close()

	written, err := handle.Write(data)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d bytes to %s\n", written, path)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path, hostPath := args[0], args[1]

	fsys, err := openFS()
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	meta, err := fsys.GetMetadata(callerUid(), callerGid(), path)
	if err != nil {
		return err
	}
	if !meta.IsFile {
		return fs.ErrInvalid
	}

	handle, err := fsys.OpenFile(callerUid(), callerGid(), path, fs.ModeRead)
	if err != nil {
		return err
	}
	defer handle.Close()

	data, err := handle.Read(meta.Size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(hostPath, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Exported %d bytes to %s\n", len(data), hostPath)
	return nil
}
