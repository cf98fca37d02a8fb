package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Engine bundles a configured buffer pool with its disk manager and logger.
// It is the assembly point: Open turns a Config into a running storage core.
type Engine struct {
	config      *Config
	diskManager DiskManager
	bufferPool  *BufferPoolManager
	logger      *slog.Logger
}

// Open validates the configuration, creates the data directory, and builds
// the disk manager and buffer pool it describes
func Open(config *Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(config.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dataFile := filepath.Join(config.DataDirectory, "forge.db")

	var diskManager DiskManager
	var err error
	if config.UseMmap {
		diskManager, err = NewMmapDiskManager(dataFile)
	} else {
		var compression CompressionType
		compression, err = ParseCompressionType(config.PageCompression)
		if err == nil {
			diskManager, err = NewFileDiskManagerWithCompression(dataFile, compression)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open disk manager: %w", err)
	}

	bufferPool, err := NewBufferPoolManagerWithReplacer(
		config.BufferPoolSize,
		diskManager,
		config.ReplacerPolicy,
		config.ReplacerK,
	)
	if err != nil {
		diskManager.Close()
		return nil, err
	}

	logger := newLogger(config.LogLevel)
	logger.Info("storage engine opened",
		slog.String("data_file", dataFile),
		slog.Uint64("pool_size", uint64(config.BufferPoolSize)),
		slog.String("replacer", config.ReplacerPolicy),
	)

	return &Engine{
		config:      config,
		diskManager: diskManager,
		bufferPool:  bufferPool,
		logger:      logger,
	}, nil
}

// newLogger builds a text slog logger at the configured level
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// BufferPool returns the engine's buffer pool manager
func (e *Engine) BufferPool() *BufferPoolManager {
	return e.bufferPool
}

// DiskManager returns the engine's disk manager
func (e *Engine) DiskManager() DiskManager {
	return e.diskManager
}

// Logger returns the engine's logger
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Close flushes every resident page, reports metrics when enabled, and
// releases the disk manager
func (e *Engine) Close() error {
	e.bufferPool.FlushAllPages()

	if e.config.EnableMetrics {
		e.bufferPool.GetMetrics().LogMetrics(e.logger)
	}

	if err := e.diskManager.Sync(); err != nil {
		return err
	}
	return e.diskManager.Close()
}
