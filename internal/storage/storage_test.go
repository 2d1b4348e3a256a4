package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFsyncDir(t *testing.T) {
	dir := t.TempDir()
	if err := FsyncDir(dir); err != nil {
		t.Errorf("FsyncDir: %v", err)
	}
}

func TestFsyncDir_NotExists(t *testing.T) {
	if err := FsyncDir("/nonexistent/path/dir"); err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	tmpDir := filepath.Join(dir, "tmp")
	if err := os.Mkdir(tmpDir, 0755); err != nil {
		t.Fatal(err)
	}
	finalPath := filepath.Join(dir, "CURRENT")

	for _, content := range []string{"1", "2"} {
		if err := AtomicWriteFile(finalPath, []byte(content), tmpDir); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(finalPath)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Errorf("file content = %q, want %q", got, content)
		}
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("tmp dir has %d entries, want 0", len(entries))
	}
}

func TestRenameDir(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "staging")
	if err := os.Mkdir(staging, 0755); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileSync(filepath.Join(staging, "a.gob"), []byte("x"), FilePerm); err != nil {
		t.Fatal(err)
	}

	final := filepath.Join(dir, "000001")
	if err := RenameDir(staging, final); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(final, "a.gob")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging dir still exists: %v", err)
	}
}

func TestListSubdirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000001", "000002"} {
		if err := EnsureDir(filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "CURRENT"), []byte("2"), FilePerm); err != nil {
		t.Fatal(err)
	}

	got, err := ListSubdirs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("ListSubdirs = %v, want 2 dirs", got)
	}

	missing, err := ListSubdirs(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Errorf("missing dir: got %v, %v", missing, err)
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("vectorizer state")
	sum := ComputeChecksum(data)

	if err := VerifyChecksum("vectorizer.gob", data, sum); err != nil {
		t.Errorf("VerifyChecksum on intact data: %v", err)
	}

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xff
	err := VerifyChecksum("vectorizer.gob", tampered, sum)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("tampered data: got %v, want ErrChecksumMismatch", err)
	}
}

func TestChecksumValidate(t *testing.T) {
	tests := []struct {
		name string
		in   Checksum
		ok   bool
	}{
		{"valid", ComputeChecksum([]byte("x")), true},
		{"no prefix", Checksum("abcd"), false},
		{"short", Checksum("sha256:abcd"), false},
		{"bad hex", Checksum("sha256:" + string(make([]byte, 64))), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.in, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidChecksum) {
				t.Errorf("Validate(%q) = %v, want ErrInvalidChecksum", tt.in, err)
			}
		})
	}
}
