package storage

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapDiskManager provides disk access through a memory-mapped file.
// ReadPage and WritePage copy a page out of or into the mapping, with no
// read or write system call; Sync issues an msync so the kernel flushes
// dirty mapping pages to the file.
type MmapDiskManager struct {
	file     *os.File
	mmapData []byte
	fileSize int64
	mutex    sync.RWMutex
}

const (
	// Initial mapping size: 64MB (16K pages * 4KB)
	initialMmapSize = 64 * 1024 * 1024
	// Grow by 64MB when a page lands past the end of the mapping
	mmapGrowSize = 64 * 1024 * 1024
)

// NewMmapDiskManager creates a new memory-mapped disk manager
func NewMmapDiskManager(fileName string) (*MmapDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := fileInfo.Size()
	if fileSize < initialMmapSize {
		if err := file.Truncate(initialMmapSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to grow file: %w", err)
		}
		fileSize = initialMmapSize
	}

	dm := &MmapDiskManager{
		file:     file,
		fileSize: fileSize,
	}

	if err := dm.mapFile(); err != nil {
		file.Close()
		return nil, err
	}

	return dm, nil
}

// mapFile creates the memory mapping for the current file size
func (dm *MmapDiskManager) mapFile() error {
	data, err := unix.Mmap(
		int(dm.file.Fd()),
		0,
		int(dm.fileSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}

	dm.mmapData = data
	return nil
}

// grow extends the file and remaps it so that offset+PageSize fits
func (dm *MmapDiskManager) grow(offset int64) error {
	newSize := dm.fileSize
	for newSize < offset+PageSize {
		newSize += mmapGrowSize
	}

	if err := unix.Munmap(dm.mmapData); err != nil {
		return fmt.Errorf("failed to unmap file: %w", err)
	}

	if err := dm.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow file: %w", err)
	}

	dm.fileSize = newSize
	return dm.mapFile()
}

// ReadPage copies the page out of the mapping into data
func (dm *MmapDiskManager) ReadPage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("MmapDiskManager.ReadPage", len(data))
	}

	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageID) * PageSize
	if offset+PageSize > dm.fileSize {
		// Past the mapping: the page was allocated but never written
		for i := range data {
			data[i] = 0
		}
		return nil
	}

	copy(data, dm.mmapData[offset:offset+PageSize])
	return nil
}

// WritePage copies data into the mapping at the page's slot, growing the
// file when the slot lies past the current end
func (dm *MmapDiskManager) WritePage(pageID uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageSize("MmapDiskManager.WritePage", len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	if offset+PageSize > dm.fileSize {
		if err := dm.grow(offset); err != nil {
			return ErrDiskOperation("MmapDiskManager.WritePage", err)
		}
	}

	copy(dm.mmapData[offset:offset+PageSize], data)
	return nil
}

// Sync flushes dirty mapping pages to the file
func (dm *MmapDiskManager) Sync() error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if err := unix.Msync(dm.mmapData, unix.MS_SYNC); err != nil {
		return ErrDiskOperation("MmapDiskManager.Sync", err)
	}
	return nil
}

// Close unmaps the file and closes it
func (dm *MmapDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return fmt.Errorf("failed to unmap file: %w", err)
		}
		dm.mmapData = nil
	}

	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}
