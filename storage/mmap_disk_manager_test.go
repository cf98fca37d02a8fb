package storage

import (
	"path/filepath"
	"testing"
)

// TestMmapDiskManagerReadWrite tests the basic write/read roundtrip
func TestMmapDiskManagerReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	dm, err := NewMmapDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to create mmap disk manager: %v", err)
	}
	defer dm.Close()

	want := makePage(0xCD)
	if err := dm.WritePage(7, want); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	got := make([]byte, PageSize)
	if err := dm.ReadPage(7, got); err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Byte %d mismatch: got %02x, want %02x", i, got[i], want[i])
		}
	}
}

// TestMmapDiskManagerPersistence tests that pages survive reopen
func TestMmapDiskManagerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")

	dm, err := NewMmapDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to create mmap disk manager: %v", err)
	}

	want := makePage(0x42)
	if err := dm.WritePage(3, want); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	if err := dm.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := dm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	dm2, err := NewMmapDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to reopen mmap disk manager: %v", err)
	}
	defer dm2.Close()

	got := make([]byte, PageSize)
	if err := dm2.ReadPage(3, got); err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if got[0] != 0x42 {
		t.Errorf("Expected 0x42 after reopen, got %02x", got[0])
	}
}

// TestMmapDiskManagerWrongSize tests the page size contract
func TestMmapDiskManagerWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	dm, err := NewMmapDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to create mmap disk manager: %v", err)
	}
	defer dm.Close()

	if err := dm.WritePage(0, make([]byte, 10)); err == nil {
		t.Error("Expected error writing a short buffer")
	}

	if err := dm.ReadPage(0, make([]byte, 10)); err == nil {
		t.Error("Expected error reading into a short buffer")
	}
}
