// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package dirmove

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// renameNoReplace renames from to to, failing with EEXIST when to
// exists. Filesystems without RENAME_NOREPLACE support fall back to a
// check-then-rename.
func renameNoReplace(from, to string) error {
	err := unix.Renameat2(unix.AT_FDCWD, from, unix.AT_FDCWD, to, unix.RENAME_NOREPLACE)
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) {
		return renameChecked(from, to)
	}
	if err != nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: err}
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

func isExist(err error) bool {
	return errors.Is(err, os.ErrExist) || errors.Is(err, unix.ENOTEMPTY)
}
