// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package dirmove

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// copyTree copies from (a file, symlink, or directory) to to, which
// must not exist. Every regular file is hashed while it is read and
// hashed again from the destination after it is written; a digest
// mismatch fails the copy with ErrMoveVerificationFailed.
func copyTree(from, to string) error {
	return filepath.WalkDir(from, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		target := filepath.Join(to, relative)

		info, err := entry.Info()
		if err != nil {
			return err
		}
		switch mode := info.Mode(); {
		case mode.IsDir():
			return os.Mkdir(target, mode.Perm())
		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case mode.IsRegular():
			return copyFile(path, target, mode.Perm())
		default:
			return fmt.Errorf("cannot copy %s: unsupported file type %v", path, mode.Type())
		}
	})
}

func copyFile(from, to string, mode fs.FileMode) error {
	source, err := os.Open(from)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	hasher := blake3.New()
	if _, err := io.Copy(destination, io.TeeReader(source, hasher)); err != nil {
		destination.Close()
		return fmt.Errorf("copying %s: %w", from, err)
	}
	if err := destination.Sync(); err != nil {
		destination.Close()
		return fmt.Errorf("syncing %s: %w", to, err)
	}
	if err := destination.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", to, err)
	}

	copied, err := hashFile(to)
	if err != nil {
		return err
	}
	if want := hasher.Sum(nil); !bytes.Equal(copied, want) {
		return fmt.Errorf("%w: %s: content digest %x, source %x", ErrMoveVerificationFailed, to, copied, want)
	}
	return nil
}

func hashFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hasher.Sum(nil), nil
}
