package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "tree.yaml")

		if err := AtomicWriteFile(filename, []byte("hello world"), 0644); err != nil {
			t.Fatalf("AtomicWriteFile failed: %v", err)
		}
		readData, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read back file: %v", err)
		}
		if string(readData) != "hello world" {
			t.Errorf("File content mismatch: got %q", string(readData))
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "tree.yaml")
		for _, s := range []string{"first", "second"} {
			if err := AtomicWriteFile(filename, []byte(s), 0600); err != nil {
				t.Fatalf("AtomicWriteFile(%s) failed: %v", s, err)
			}
		}
		readData, err := os.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		if string(readData) != "second" {
			t.Errorf("got %q, want second", string(readData))
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("temp files left behind: %v", entries)
		}
		if runtime.GOOS != "windows" {
			info, err := os.Stat(filename)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("mode = %v, want 0600", info.Mode().Perm())
			}
		}
	})

	t.Run("directory creation failure", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0644); err != nil {
			t.Fatal(err)
		}
		filename := filepath.Join(blocker, "sub", "tree.yaml")

		if err := AtomicWriteFile(filename, []byte("data"), 0644); err == nil {
			t.Fatal("Expected an error but got none")
		}
		if _, err := os.Stat(filename); err == nil {
			t.Error("File should not have been created, but exists")
		}
	})

	t.Run("rename failure and cleanup", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "tree.yaml")
		if err := os.Mkdir(filename, 0755); err != nil {
			t.Fatalf("Failed to create conflicting directory: %v", err)
		}

		err := AtomicWriteFile(filename, []byte("data"), 0644)
		if err == nil {
			t.Fatal("Expected an error but got none")
		}
		var renameErr RenameError
		if !errors.As(err, &renameErr) {
			t.Fatalf("Expected RenameError, got %T: %v", err, err)
		}
		if _, statErr := os.Stat(renameErr.TempPath()); !os.IsNotExist(statErr) {
			t.Errorf("Temporary file %q was not cleaned up", renameErr.TempPath())
		}
	})

	t.Run("nested directory", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "a", "b", "tree.yaml")
		if err := AtomicWriteFile(filename, []byte("nested"), 0644); err != nil {
			t.Fatalf("AtomicWriteFile with nested dirs failed: %v", err)
		}
	})
}
