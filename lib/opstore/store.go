// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package opstore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	// ErrRecordNotFound means the store has no record for the named
	// workspace.
	ErrRecordNotFound = errors.New("workspace record not found")

	// ErrStoreCorrupt means the store could not be decoded: malformed
	// wire data, unexpected wire types, or two records with one name.
	// Nothing is written when a store is corrupt.
	ErrStoreCorrupt = errors.New("workspace store corrupt")

	// ErrStoreChanged means another writer modified the store between
	// reading it and renaming the replacement into place. The live file
	// is left untouched.
	ErrStoreChanged = errors.New("workspace store changed during write")
)

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStoreCorrupt, fmt.Sprintf(format, args...))
}

// Store is a handle on one workspace store file. It holds no state
// beyond the path; every operation reads the file afresh.
type Store struct {
	path   string
	logger *slog.Logger

	// beforeRename runs after the replacement has been written and
	// verified, immediately before the live file is re-checked. Tests
	// use it to simulate a concurrent writer.
	beforeRename func()

	// syncDirectory flushes the store's directory after the rename.
	syncDirectory func(path string) error
}

// Open returns a handle on the store at path. The file is not read
// until an operation needs it.
func Open(path string) *Store {
	return &Store{path: path, logger: slog.New(slog.DiscardHandler), syncDirectory: syncDirectory}
}

// WithLogger sets the logger that receives cleanup failures which do
// not fail the operation, and returns s.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Records returns every record in file order.
func (s *Store) Records() ([]Record, error) {
	_, records, err := s.read()
	return records, err
}

// Lookup returns the record for name.
func (s *Store) Lookup(name string) (Record, error) {
	_, records, err := s.read()
	if err != nil {
		return Record{}, err
	}
	return find(records, name)
}

// Patch rewrites the path of the record for name and returns the record
// as it was before the write. Only that record's bytes change.
func (s *Store) Patch(name, newPath string) (Record, error) {
	return s.rewrite(name,
		func(record Record) ([]byte, error) {
			return withPath(record, newPath), nil
		},
		func(record Record) error {
			if record.Path != newPath {
				return fmt.Errorf("patched record for %q decodes to path %q, want %q", name, record.Path, newPath)
			}
			return nil
		},
	)
}

// Restore replaces the record for name with raw, typically the Raw
// bytes of a record returned by an earlier [Store.Patch]. raw must be
// exactly one well-formed record for name.
func (s *Store) Restore(name string, raw []byte) error {
	parsed, err := parseStore(raw)
	if err != nil {
		return fmt.Errorf("restoring %q: %w", name, err)
	}
	if len(parsed) != 1 || parsed[0].Length != len(raw) || parsed[0].Name != name {
		return fmt.Errorf("restoring %q: %w: replacement is not a single record for that workspace", name, ErrStoreCorrupt)
	}
	restored := parsed[0]

	_, err = s.rewrite(name,
		func(Record) ([]byte, error) {
			return raw, nil
		},
		func(record Record) error {
			if record.Path != restored.Path {
				return fmt.Errorf("restored record for %q decodes to path %q, want %q", name, record.Path, restored.Path)
			}
			return nil
		},
	)
	return err
}

func (s *Store) read() ([]byte, []Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading workspace store: %w", err)
	}
	records, err := parseStore(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return data, records, nil
}

func find(records []Record, name string) (Record, error) {
	for _, record := range records {
		if record.Name == name {
			return record, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %q", ErrRecordNotFound, name)
}

// rewrite replaces the byte span of the record for name with the
// output of replace, writes the result atomically, and returns the
// record as it was. check validates the record decoded back from the
// written file.
func (s *Store) rewrite(name string, replace func(Record) ([]byte, error), check func(Record) error) (Record, error) {
	original, records, err := s.read()
	if err != nil {
		return Record{}, err
	}
	target, err := find(records, name)
	if err != nil {
		return Record{}, err
	}
	replacement, err := replace(target)
	if err != nil {
		return Record{}, err
	}

	prefix := original[:target.Offset]
	suffix := original[target.Offset+target.Length:]
	updated := make([]byte, 0, len(prefix)+len(replacement)+len(suffix))
	updated = append(updated, prefix...)
	updated = append(updated, replacement...)
	updated = append(updated, suffix...)

	info, err := os.Stat(s.path)
	if err != nil {
		return Record{}, fmt.Errorf("reading workspace store mode: %w", err)
	}

	directory := filepath.Dir(s.path)
	temporaryPath := filepath.Join(directory, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := writeSynced(temporaryPath, updated, info.Mode().Perm()); err != nil {
		return Record{}, err
	}

	if err := verifyReplacement(temporaryPath, prefix, suffix, len(records), target.Offset, name, check); err != nil {
		os.Remove(temporaryPath)
		return Record{}, err
	}

	if s.beforeRename != nil {
		s.beforeRename()
	}

	live, err := os.ReadFile(s.path)
	if err != nil {
		os.Remove(temporaryPath)
		return Record{}, fmt.Errorf("re-reading workspace store: %w", err)
	}
	if !bytes.Equal(live, original) {
		os.Remove(temporaryPath)
		return Record{}, fmt.Errorf("%s: %w", s.path, ErrStoreChanged)
	}

	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return Record{}, fmt.Errorf("renaming workspace store into place: %w", err)
	}

	// The rename is only durable once the directory entry is flushed.
	if err := s.syncDirectory(directory); err != nil {
		s.logger.Warn("workspace store rename may not be durable", "path", s.path, "error", err)
	}

	return target, nil
}

func syncDirectory(path string) error {
	directory, err := os.Open(path)
	if err != nil {
		return err
	}
	if err := directory.Sync(); err != nil {
		directory.Close()
		return err
	}
	return directory.Close()
}

func writeSynced(path string, data []byte, mode os.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("creating temporary workspace store: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing temporary workspace store: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("syncing temporary workspace store: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing temporary workspace store: %w", err)
	}
	return nil
}

// verifyReplacement re-reads the written file and checks that the
// bytes around the replaced record are unchanged, that the record
// count is unchanged, and that the record at offset decodes as
// expected.
func verifyReplacement(path string, prefix, suffix []byte, count, offset int, name string, check func(Record) error) error {
	written, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("re-reading temporary workspace store: %w", err)
	}
	if !bytes.HasPrefix(written, prefix) || !bytes.HasSuffix(written, suffix) || len(written) < len(prefix)+len(suffix) {
		return fmt.Errorf("temporary workspace store for %q: bytes outside the record changed", name)
	}
	records, err := parseStore(written)
	if err != nil {
		return fmt.Errorf("temporary workspace store for %q: %w", name, err)
	}
	if len(records) != count {
		return fmt.Errorf("temporary workspace store for %q has %d records, want %d", name, len(records), count)
	}
	for _, record := range records {
		if record.Offset == offset {
			if record.Name != name {
				return fmt.Errorf("temporary workspace store: record at %d is %q, want %q", offset, record.Name, name)
			}
			return check(record)
		}
	}
	return fmt.Errorf("temporary workspace store: no record at offset %d", offset)
}
