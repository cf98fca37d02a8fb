package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// DiskManager moves fixed-size pages between memory and stable storage.
// Addressing is by integer page id; pages live at pageID * PageSize.
type DiskManager interface {
	// ReadPage fills data (exactly PageSize bytes) with the page's content
	ReadPage(pageID uint32, data []byte) error

	// WritePage persists data (exactly PageSize bytes) as the page's content
	WritePage(pageID uint32, data []byte) error

	// Sync forces buffered writes to stable storage
	Sync() error

	// Close releases the underlying resources
	Close() error
}

// FileDiskManager stores pages in a single file using positioned reads and
// writes. Optionally compresses pages transparently on their way to disk;
// compressed pages still occupy a full PageSize slot so addressing never
// changes.
type FileDiskManager struct {
	file        *os.File
	compression CompressionType
	mutex       sync.Mutex
}

// NewFileDiskManager creates a disk manager that manages pages in a file
func NewFileDiskManager(fileName string) (*FileDiskManager, error) {
	return NewFileDiskManagerWithCompression(fileName, CompressionNone)
}

// NewFileDiskManagerWithCompression creates a disk manager that compresses
// pages with the given algorithm before writing them
func NewFileDiskManagerWithCompression(fileName string, compression CompressionType) (*FileDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	return &FileDiskManager{
		file:        file,
		compression: compression,
	}, nil
}

// ReadPage reads a page from disk into data.
// A read past the end of the file yields a zero-filled page: the page was
// allocated but never written.
func (dm *FileDiskManager) ReadPage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("FileDiskManager.ReadPage", len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	buf := make([]byte, PageSize)

	n, err := dm.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return ErrDiskOperation("FileDiskManager.ReadPage", err)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}

	decoded, err := DecompressPageTransparent(buf)
	if err != nil {
		return ErrDiskOperation("FileDiskManager.ReadPage", err)
	}

	copy(data, decoded)
	return nil
}

// WritePage writes a page to disk at the slot for pageID
func (dm *FileDiskManager) WritePage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("FileDiskManager.WritePage", len(data))
	}

	out := data
	if dm.compression != CompressionNone {
		encoded, err := CompressPageTransparent(data, dm.compression)
		if err == nil {
			out = encoded
		}
		// A page that does not compress into a slot is stored raw
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(out, offset); err != nil {
		return ErrDiskOperation("FileDiskManager.WritePage", err)
	}

	return dm.file.Sync()
}

// PageWrite represents a single page write operation
type PageWrite struct {
	PageID uint32
	Data   []byte
}

// WritePagesV writes multiple pages in a single batch operation with one
// fsync at the end. More efficient than writing pages one-at-a-time.
func (dm *FileDiskManager) WritePagesV(writes []PageWrite) error {
	if len(writes) == 0 {
		return nil
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	for _, pw := range writes {
		if len(pw.Data) != PageSize {
			return ErrInvalidPageSize("FileDiskManager.WritePagesV", len(pw.Data))
		}

		out := pw.Data
		if dm.compression != CompressionNone {
			if encoded, err := CompressPageTransparent(pw.Data, dm.compression); err == nil {
				out = encoded
			}
		}

		offset := int64(pw.PageID) * PageSize
		if _, err := dm.file.WriteAt(out, offset); err != nil {
			return ErrDiskOperation("FileDiskManager.WritePagesV", err)
		}
	}

	return dm.file.Sync()
}

// Sync flushes the file to stable storage
func (dm *FileDiskManager) Sync() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	return dm.file.Sync()
}

// Close closes the disk manager and its underlying file
func (dm *FileDiskManager) Close() error {
	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}

// MemoryDiskManager keeps pages in an in-memory map. It exists for tests and
// for running the engine without a backing file.
type MemoryDiskManager struct {
	pages map[uint32][]byte
	mutex sync.Mutex
}

// NewMemoryDiskManager creates an in-memory disk manager
func NewMemoryDiskManager() *MemoryDiskManager {
	return &MemoryDiskManager{
		pages: make(map[uint32][]byte),
	}
}

// ReadPage copies the page's stored content into data.
// Never-written pages read back as zeroes.
func (dm *MemoryDiskManager) ReadPage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("MemoryDiskManager.ReadPage", len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	stored, ok := dm.pages[pageID]
	if !ok {
		for i := range data {
			data[i] = 0
		}
		return nil
	}

	copy(data, stored)
	return nil
}

// WritePage stores a copy of data as the page's content
func (dm *MemoryDiskManager) WritePage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("MemoryDiskManager.WritePage", len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	stored := make([]byte, PageSize)
	copy(stored, data)
	dm.pages[pageID] = stored
	return nil
}

// Sync is a no-op for the in-memory manager
func (dm *MemoryDiskManager) Sync() error {
	return nil
}

// Close drops all stored pages
func (dm *MemoryDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	dm.pages = make(map[uint32][]byte)
	return nil
}
