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
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nandfs/internal/config"
	"nandfs/internal/fs"
	"nandfs/internal/nand"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Persistent flags: the caller identity and image selection
var (
	flagUid     uint32
	flagGid     uint16
	flagData    string
	flagVerbose bool
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	// Prod build: version with date
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

var rootCmd = &cobra.Command{
	Use:   "nandfs",
	Short: "Emulated NAND flash filesystem",
	Long:  `Emulated NAND flash filesystem over a single image file. Entries carry per-identity access modes; the image is exclusively locked while open.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if err := config.InitConfigDir(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		settings, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		nand.SetConfigBusyTimeout(settings.CLIBusyTimeout)

		level := settings.LogLevel
		if flagVerbose {
			level = "debug"
		}
		applyLogLevel(level)
		return nil
	},
}

func applyLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("nandfs version {{.Version}}\n")

	rootCmd.PersistentFlags().Uint32Var(&flagUid, "uid", 0, "caller user id")
	rootCmd.PersistentFlags().Uint16Var(&flagGid, "gid", 0, "caller group id")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "image file (default: settings)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// callerUid returns the identity flags as engine types
func callerUid() fs.Uid { return fs.Uid(flagUid) }
func callerGid() fs.Gid { return fs.Gid(flagGid) }

// openFS opens the configured filesystem for this invocation. The caller
// must Shutdown it.
func openFS() (fs.FileSystem, error) {
	fsys, err := nand.MakeFileSystem(fs.LocationConfigured, nand.Options{
		ImagePath: flagData,
		Context:   nand.DBContextCLI,
	})
	if err != nil {
		if fs.Code(err) == fs.ErrInUse {
			return nil, fmt.Errorf("image is in use by another process")
		}
		return nil, err
	}
	return fsys, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
