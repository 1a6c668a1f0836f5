package hostcap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFiles_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "note.txt")

	var f Files
	if err := f.WriteFile(nil, path, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := f.ReadFile(nil, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("read = %q, want %q", got, "hello")
	}
}

func TestFiles_CreateFolder(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "reports", "nested")

	var f Files
	if err := f.CreateFolder(nil, target); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %s to be a directory", target)
	}
}

func TestFiles_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var f Files
	if err := f.DeleteFile(nil, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, stat err = %v", err)
	}
}

func TestFiles_DeleteFile_RefusesEmptyOrRoot(t *testing.T) {
	var f Files
	if err := f.DeleteFile(nil, "/"); err == nil {
		t.Fatal("expected error deleting /, got nil")
	}
	if err := f.DeleteFile(nil, ""); err == nil {
		t.Fatal("expected error deleting empty path, got nil")
	}
}
