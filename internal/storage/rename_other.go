//go:build !windows

package storage

import "os"

func rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
