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
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"nandfs/internal/fs"
	"nandfs/internal/util"
)

// Store is the SQLite-backed NAND image. It persists the superblock, the
// entry table, and cluster content, and owns the host-level file lock that
// guarantees a single writer per image.
type Store struct {
	path      string
	db        *sql.DB
	bun       *bun.DB
	lock      *flock.Flock
	ephemeral bool
}

// execPragma runs a PRAGMA statement using Query (not Exec) because libsql
// returns rows for PRAGMA statements. The result rows are drained and closed.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	rows.Close()
	return nil
}

// applyPragmas sets essential PRAGMAs after opening a libsql connection.
// libsql ignores DSN-based _pragma=value parameters, so all PRAGMAs must be
// set explicitly via SQL statements after the connection is opened.
func applyPragmas(db *sql.DB, ctx DBContext) error {
	// Busy timeout MUST be set first — all subsequent PRAGMAs (especially
	// journal_mode=WAL which needs exclusive access) will wait for locks
	// instead of failing immediately with "database is locked".
	busyTimeout := GetBusyTimeout(ctx)
	if err := execPragma(db, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout)); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	// WAL mode: enables concurrent readers during writes, reduces lock contention.
	// Must be set via explicit PRAGMA — libsql ignores _journal_mode in DSN.
	if err := execPragma(db, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to set journal_mode=WAL: %w", err)
	}

	// synchronous=NORMAL: WAL mode with NORMAL sync is safe against process
	// crashes (only vulnerable to OS crash / power loss).
	if err := execPragma(db, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous=NORMAL: %w", err)
	}

	// Larger cache for better read performance (default is ~2MB, set to 8MB).
	if err := execPragma(db, "PRAGMA cache_size = -8000"); err != nil {
		return fmt.Errorf("failed to set cache_size: %w", err)
	}

	return nil
}

// StoreOptions configures how an image is opened.
type StoreOptions struct {
	// Context selects the busy_timeout profile.
	Context DBContext
	// Locked acquires an exclusive host flock on the image. An image already
	// locked by another process fails ErrInUse.
	Locked bool
	// Ephemeral removes the image file on Close.
	Ephemeral bool
}

// OpenStore opens an existing image or initializes a fresh one at path.
// Schema initialization failures surface as ErrSuperblockInitFailed.
func OpenStore(path string, opts StoreOptions) (*Store, error) {
	var lock *flock.Flock
	if opts.Locked {
		lock = flock.New(path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock image: %w", err)
		}
		if !locked {
			return nil, fs.ErrInUse
		}
	}

	db, err := sql.Open("libsql", BuildDSN(path, opts.Context))
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("failed to open image database: %w", err)
	}

	// Apply all PRAGMAs (WAL, synchronous, busy_timeout, cache).
	// Must be explicit — libsql ignores DSN-based _pragma=value parameters.
	if err := applyPragmas(db, opts.Context); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	if err := execStatements(db, imageSchema); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		log.Debugf("schema init failed for %s: %v", path, err)
		return nil, fs.ErrSuperblockInitFailed
	}
	if err := execStatements(db, initImage, SchemaVersion); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		log.Debugf("schema init failed for %s: %v", path, err)
		return nil, fs.ErrSuperblockInitFailed
	}

	s := &Store{
		path:      path,
		db:        db,
		bun:       bun.NewDB(db, sqlitedialect.New()),
		lock:      lock,
		ephemeral: opts.Ephemeral,
	}
	return s, nil
}

// Close checkpoints the WAL into the main image file, closes the database,
// removes the -wal/-shm side files, and releases the host lock. An ephemeral
// image is deleted.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	// TRUNCATE mode: checkpoint and then truncate the WAL file to zero bytes.
	// PRAGMA wal_checkpoint returns rows, so we must use Query() not Exec().
	rows, err := s.db.Query("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		log.Warnf("WAL checkpoint failed: %v", err)
	} else {
		rows.Close()
	}

	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil

	os.Remove(s.path + "-wal") // may not exist
	os.Remove(s.path + "-shm")

	if s.lock != nil {
		s.lock.Unlock()
		os.Remove(s.lock.Path())
	}
	if s.ephemeral {
		os.Remove(s.path)
	}
	return nil
}

// Path returns the image file path
func (s *Store) Path() string {
	return s.path
}

// RunInTx wraps fn in a single SQLite transaction, retrying the whole
// transaction on transient "database is locked" errors.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return util.Retry(ctx,
		func() error {
			return s.bun.RunInTx(ctx, nil, fn)
		},
		util.DatabaseRetryOptions(ctx)...)
}

// --- Superblock Operations ---

// GetSuperblockValue retrieves a superblock value by key.
func (s *Store) GetSuperblockValue(ctx context.Context, key string) (string, error) {
	var sb SuperblockModel
	err := s.bun.NewSelect().
		Model(&sb).
		Where("key = ?", key).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sb.Value, nil
}

// SetSuperblockValue sets a superblock value (upserts).
func (s *Store) SetSuperblockValue(ctx context.Context, key, value string) error {
	return s.setSuperblockValueWith(s.bun, ctx, key, value)
}

func (s *Store) setSuperblockValueWith(idb bun.IDB, ctx context.Context, key, value string) error {
	_, err := idb.NewInsert().
		Model(&SuperblockModel{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

// NandID returns the image identity minted at format time, or "" before the
// first format.
func (s *Store) NandID(ctx context.Context) (string, error) {
	return s.GetSuperblockValue(ctx, superblockNandID)
}

// FormatUid returns the uid that performed the last format.
func (s *Store) FormatUid(ctx context.Context) (fs.Uid, error) {
	val, err := s.GetSuperblockValue(ctx, superblockFormatUid)
	if err != nil || val == "" {
		return 0, err
	}
	uid, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, err
	}
	return fs.Uid(uid), nil
}

// BadClusterCount returns the recorded bad-cluster count for the medium.
func (s *Store) BadClusterCount(ctx context.Context) (int64, error) {
	val, err := s.GetSuperblockValue(ctx, superblockBadBlocks)
	if err != nil || val == "" {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// nextSeqTx allocates the next directory-insertion sequence number within tx.
func (s *Store) nextSeqTx(ctx context.Context, tx bun.Tx) (int64, error) {
	var val string
	err := tx.NewRaw(`SELECT value FROM superblock WHERE key = ?`, superblockNextSeq).Scan(ctx, &val)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	seq := int64(0)
	if val != "" {
		seq, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	if err := s.setSuperblockValueWith(tx, ctx, superblockNextSeq, strconv.FormatInt(seq+1, 10)); err != nil {
		return 0, err
	}
	return seq, nil
}

// --- Format ---

// Format wipes the image and reinitializes an empty root owned by uid.
// Everything happens in one transaction; a failure surfaces as
// ErrSuperblockWriteFailed and leaves the previous state intact.
func (s *Store) Format(ctx context.Context, uid fs.Uid) error {
	err := s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ContentModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*EntryModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*SuperblockModel)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if err := s.setSuperblockValueWith(tx, ctx, superblockNandID, uuid.NewString()); err != nil {
			return err
		}
		if err := s.setSuperblockValueWith(tx, ctx, superblockFormatUid, strconv.FormatUint(uint64(uid), 10)); err != nil {
			return err
		}
		seq, err := s.nextSeqTx(ctx, tx)
		if err != nil {
			return err
		}
		// Root directory: slot 0, readable and writable by everyone
		_, err = tx.NewInsert().Model(&EntryModel{
			Ino:       RootIno,
			ParentIno: RootParentIno,
			Name:      "/",
			Uid:       int64(uid),
			OwnerMode: int64(fs.ModeReadWrite),
			GroupMode: int64(fs.ModeReadWrite),
			OtherMode: int64(fs.ModeReadWrite),
			IsFile:    false,
			Seq:       seq,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		log.Debugf("format failed: %v", err)
		return fs.ErrSuperblockWriteFailed
	}
	return nil
}

// IsFormatted reports whether the image has a root entry.
func (s *Store) IsFormatted(ctx context.Context) (bool, error) {
	return s.bun.NewSelect().
		Model((*EntryModel)(nil)).
		Where("ino = ?", RootIno).
		Exists(ctx)
}

// --- Entry Operations ---

// GetEntry retrieves an entry by slot index.
func (s *Store) GetEntry(ctx context.Context, ino int64) (*Entry, error) {
	var model EntryModel
	err := s.bun.NewSelect().
		Model(&model).
		Where("ino = ?", ino).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, fs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToEntry(), nil
}

// LookupChild finds a named child of a directory.
func (s *Store) LookupChild(ctx context.Context, parentIno int64, name string) (*Entry, error) {
	var model EntryModel
	err := s.bun.NewSelect().
		Model(&model).
		Where("parent_ino = ?", parentIno).
		Where("name = ?", name).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, fs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToEntry(), nil
}

// ListChildren lists the children of a directory in insertion order.
func (s *Store) ListChildren(ctx context.Context, parentIno int64) ([]*Entry, error) {
	var models []EntryModel
	err := s.bun.NewSelect().
		Model(&models).
		Where("parent_ino = ?", parentIno).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, len(models))
	for i := range models {
		entries[i] = models[i].ToEntry()
	}
	return entries, nil
}

// HasChildren reports whether a directory has any children.
func (s *Store) HasChildren(ctx context.Context, parentIno int64) (bool, error) {
	return s.bun.NewSelect().
		Model((*EntryModel)(nil)).
		Where("parent_ino = ?", parentIno).
		Exists(ctx)
}

// CountEntries returns the number of occupied entry slots.
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	count, err := s.bun.NewSelect().
		Model((*EntryModel)(nil)).
		Count(ctx)
	return int64(count), err
}

// UsedClusters returns the clusters occupied by file content across the
// image, rounding each file up to whole clusters.
func (s *Store) UsedClusters(ctx context.Context) (int64, error) {
	var used sql.NullInt64
	err := s.bun.NewRaw(`
		SELECT SUM((size + ?) / ?) FROM entries WHERE is_file = 1
	`, ClusterSize-1, ClusterSize).Scan(ctx, &used)
	if err != nil {
		return 0, err
	}
	if used.Valid {
		return used.Int64, nil
	}
	return 0, nil
}

// allocateInoTx finds the lowest free slot index within tx. Slot exhaustion
// fails ErrTableFull.
func (s *Store) allocateInoTx(ctx context.Context, tx bun.Tx) (int64, error) {
	// Lowest index not currently occupied. Slot reuse after delete keeps
	// fst indices dense, matching how the flash entry table behaves.
	var ino sql.NullInt64
	err := tx.NewRaw(`
		SELECT MIN(e.ino + 1) FROM entries e
		WHERE NOT EXISTS (SELECT 1 FROM entries e2 WHERE e2.ino = e.ino + 1)
	`).Scan(ctx, &ino)
	if err != nil {
		return 0, err
	}
	if !ino.Valid {
		// Empty table: root's slot
		return RootIno, nil
	}
	if ino.Int64 >= TotalInodes {
		return 0, fs.ErrTableFull
	}
	return ino.Int64, nil
}

// InsertEntry creates a new entry under parentIno, allocating its slot and
// insertion sequence. Returns the populated entry.
func (s *Store) InsertEntry(ctx context.Context, e *Entry) (*Entry, error) {
	err := s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		ino, err := s.allocateInoTx(ctx, tx)
		if err != nil {
			return err
		}
		seq, err := s.nextSeqTx(ctx, tx)
		if err != nil {
			return err
		}
		e.Ino = ino
		e.Seq = seq
		_, err = tx.NewInsert().Model(e.Model()).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry removes an entry slot and its content clusters.
func (s *Store) DeleteEntry(ctx context.Context, ino int64) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ContentModel)(nil)).Where("ino = ?", ino).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*EntryModel)(nil)).Where("ino = ?", ino).Exec(ctx)
		return err
	})
}

// UpdateEntryMeta replaces an entry's attribute record in place.
func (s *Store) UpdateEntryMeta(ctx context.Context, ino int64, uid fs.Uid, gid fs.Gid,
	attr fs.FileAttribute, ownerMode, groupMode, otherMode fs.Mode) error {
	_, err := s.bun.NewUpdate().
		Model((*EntryModel)(nil)).
		Set("uid = ?", int64(uid)).
		Set("gid = ?", int64(gid)).
		Set("attr = ?", int64(attr)).
		Set("owner_mode = ?", int64(ownerMode)).
		Set("group_mode = ?", int64(groupMode)).
		Set("other_mode = ?", int64(otherMode)).
		Where("ino = ?", ino).
		Exec(ctx)
	return err
}

// UpdateEntrySize updates a file entry's size.
func (s *Store) UpdateEntrySize(ctx context.Context, ino int64, size int64) error {
	_, err := s.bun.NewUpdate().
		Model((*EntryModel)(nil)).
		Set("size = ?", size).
		Where("ino = ?", ino).
		Exec(ctx)
	return err
}

// RenameEntry moves an entry to a new parent and name. The slot index and
// insertion sequence are preserved; only the link changes.
func (s *Store) RenameEntry(ctx context.Context, ino int64, newParentIno int64, newName string) error {
	_, err := s.bun.NewUpdate().
		Model((*EntryModel)(nil)).
		Set("parent_ino = ?", newParentIno).
		Set("name = ?", newName).
		Where("ino = ?", ino).
		Exec(ctx)
	return err
}

// --- Content Operations ---

// ReadContent reads length bytes of file content starting at offset,
// assembling the run from cluster rows. Missing clusters read as zeroes up
// to the requested range (sparse files).
func (s *Store) ReadContent(ctx context.Context, ino int64, offset int64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}

	startCluster := offset / ClusterSize
	endCluster := (offset + int64(length) - 1) / ClusterSize

	var chunks []ContentModel
	err := s.bun.NewSelect().
		Model(&chunks).
		Where("ino = ?", ino).
		Where("cluster_idx >= ?", startCluster).
		Where("cluster_idx <= ?", endCluster).
		Order("cluster_idx ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]byte, length)
	for _, chunk := range chunks {
		clusterStart := chunk.ClusterIdx * ClusterSize
		for i, b := range chunk.Data {
			pos := clusterStart + int64(i) - offset
			if pos >= 0 && pos < int64(length) {
				result[pos] = b
			}
		}
	}
	return result, nil
}

// WriteContent writes data at the given offset, cluster by cluster, with
// read-modify-write for partial clusters. The whole write commits in one
// transaction.
func (s *Store) WriteContent(ctx context.Context, ino int64, offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	return s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		pos := int64(0)
		for pos < int64(len(data)) {
			clusterIdx := (offset + pos) / ClusterSize
			clusterOffset := int((offset + pos) % ClusterSize)

			// Read existing cluster if partial write
			var existing []byte
			if clusterOffset > 0 || int64(len(data))-pos < ClusterSize {
				err := tx.NewRaw(`
					SELECT data FROM content WHERE ino = ? AND cluster_idx = ?
				`, ino, clusterIdx).Scan(ctx, &existing)
				if err != nil && err != sql.ErrNoRows {
					return err
				}
			}

			writeLen := min(ClusterSize-clusterOffset, len(data)-int(pos))

			var newCluster []byte
			if existing != nil {
				newCluster = make([]byte, max(len(existing), clusterOffset+writeLen))
				copy(newCluster, existing)
			} else {
				newCluster = make([]byte, clusterOffset+writeLen)
			}
			copy(newCluster[clusterOffset:], data[pos:pos+int64(writeLen)])

			_, err := tx.NewInsert().
				Model(&ContentModel{
					Ino:        ino,
					ClusterIdx: clusterIdx,
					Data:       newCluster,
				}).
				On("CONFLICT (ino, cluster_idx) DO UPDATE").
				Set("data = EXCLUDED.data").
				Exec(ctx)
			if err != nil {
				return err
			}

			pos += int64(writeLen)
		}
		return nil
	})
}
