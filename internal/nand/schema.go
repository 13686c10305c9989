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
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const SchemaVersion = "1"

// Geometry of the emulated flash medium. ClusterSize doubles as the content
// chunk size in the backing database so usage accounting matches storage.
const (
	ClusterSize      = 16384
	TotalClusters    = 0x8000
	ReservedClusters = 0x0300
	TotalInodes      = 0x17FF
	MaxOpenHandles   = 16
)

// Root entry slot. The root has no parent; its parent column holds
// RootParentIno as a sentinel.
const (
	RootIno       = 0
	RootParentIno = -1
)

// Default busy_timeout in milliseconds (30 seconds)
const DefaultBusyTimeout = 30000

// Environment variable names for busy_timeout configuration
const (
	// EnvBusyTimeout is the general busy_timeout override for all contexts
	EnvBusyTimeout = "NANDFS_BUSY_TIMEOUT"
	// EnvCLIBusyTimeout is the busy_timeout for CLI database access
	EnvCLIBusyTimeout = "NANDFS_CLI_BUSY_TIMEOUT"
)

// DBContext indicates the context in which the database is being accessed
type DBContext int

const (
	// DBContextDefault uses the general busy_timeout
	DBContextDefault DBContext = iota
	// DBContextCLI uses the CLI-specific busy_timeout
	DBContextCLI
)

// Package-level config value (set via SetConfigBusyTimeout)
var configCLIBusyTimeout int

// SetConfigBusyTimeout sets the config-based busy_timeout value.
// This should be called by the CLI after loading the config file.
// A value of 0 is ignored (use env var or default).
func SetConfigBusyTimeout(cliTimeout int) {
	configCLIBusyTimeout = cliTimeout
}

// GetBusyTimeout returns the busy_timeout value for the given context.
// Priority: specific env (cli) > general env > config file > default
func GetBusyTimeout(ctx DBContext) int {
	if ctx == DBContextCLI {
		if val := os.Getenv(EnvCLIBusyTimeout); val != "" {
			if timeout, err := strconv.Atoi(val); err == nil && timeout > 0 {
				return timeout
			}
		}
	}

	if val := os.Getenv(EnvBusyTimeout); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil && timeout > 0 {
			return timeout
		}
	}

	if ctx == DBContextCLI && configCLIBusyTimeout > 0 {
		return configCLIBusyTimeout
	}

	return DefaultBusyTimeout
}

// BuildDSN builds the SQLite DSN with the appropriate busy_timeout for the context
func BuildDSN(path string, ctx DBContext) string {
	timeout := GetBusyTimeout(ctx)
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", path, timeout)
}

// Schema SQL for a NAND image file
const imageSchema = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Superblock: image-wide key/value state (nand_id, format_uid, next_seq, ...)
CREATE TABLE IF NOT EXISTS superblock (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Entry table: one row per file or directory. ino is the table-slot index
-- in [0, 0x17FF). The root occupies ino 0 with parent_ino -1.
CREATE TABLE IF NOT EXISTS entries (
    ino INTEGER PRIMARY KEY,
    parent_ino INTEGER NOT NULL,
    name TEXT NOT NULL,
    uid INTEGER NOT NULL DEFAULT 0,
    gid INTEGER NOT NULL DEFAULT 0,
    attr INTEGER NOT NULL DEFAULT 0,
    owner_mode INTEGER NOT NULL,
    group_mode INTEGER NOT NULL,
    other_mode INTEGER NOT NULL,
    is_file INTEGER NOT NULL,
    size INTEGER NOT NULL DEFAULT 0,
    seq INTEGER NOT NULL,
    UNIQUE (parent_ino, name)
);

-- Directory listing order is insertion order (monotonic seq)
CREATE INDEX IF NOT EXISTS idx_entries_parent_seq ON entries(parent_ino, seq);

-- File content storage, one row per cluster
CREATE TABLE IF NOT EXISTS content (
    ino INTEGER NOT NULL,
    cluster_idx INTEGER NOT NULL,
    data BLOB NOT NULL,
    PRIMARY KEY (ino, cluster_idx)
);
`

// Superblock keys
const (
	superblockNandID    = "nand_id"
	superblockFormatUid = "format_uid"
	superblockNextSeq   = "next_seq"
	superblockBadBlocks = "bad_clusters"
)

const initImage = `
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?);
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('type', 'nand');
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('created_at', datetime('now'));
`

// execStatements executes multiple SQL statements separated by semicolons.
// libsql driver doesn't support multi-statement Exec, so we split and execute individually.
func execStatements(db *sql.DB, sqlScript string, args ...interface{}) error {
	statements := splitStatements(sqlScript)
	argIdx := 0
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		// Count placeholders in this statement
		placeholders := strings.Count(stmt, "?")
		stmtArgs := args[argIdx : argIdx+placeholders]
		argIdx += placeholders
		if _, err := db.Exec(stmt, stmtArgs...); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual statements
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	// Handle any remaining content
	if current.Len() > 0 {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// ClustersForSize returns the number of clusters a file of the given size
// occupies on the medium.
func ClustersForSize(size int64) int64 {
	return (size + ClusterSize - 1) / ClusterSize
}
