// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package dirmove

import (
	"errors"
	"os"
	"syscall"
)

func renameNoReplace(from, to string) error {
	return renameChecked(from, to)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

func isExist(err error) bool {
	return errors.Is(err, os.ErrExist)
}
