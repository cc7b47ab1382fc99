package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "frame-0000.png")
	testData := []byte("hello world")

	if err := fs.WriteFile(testPath, testData); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(testPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	info, err := os.Stat(testPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileOverwritesWithoutTempLeftovers(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "frames.rgb")
	if err := fs.WriteFile(testPath, []byte("first version")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFile(testPath, []byte("second")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, _ := fs.ReadFile(testPath)
	if string(data) != "second" {
		t.Errorf("expected overwritten content, got %q", data)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the target file, got %v", names)
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "a", "b", "c", "test.txt")
	if err := fs.WriteFile(testPath, []byte("test")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "a", "b", "c")
	if err := fs.MkdirAll(testPath); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected directory to exist")
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testPath, []byte("test"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}

	exists, err = fs.Exists(filepath.Join(tmpDir, "nonexistent.txt"))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected file to not exist")
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testPath, []byte("test"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fs.Remove(testPath); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	exists, _ := fs.Exists(testPath)
	if exists {
		t.Error("expected file to be removed")
	}
}
