package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineOpenClose(t *testing.T) {
	config := DefaultConfig()
	config.DataDirectory = t.TempDir()
	config.BufferPoolSize = 8

	engine, err := Open(config)
	require.NoError(t, err)

	page, err := engine.BufferPool().NewPage()
	require.NoError(t, err)
	copy(page.GetData(), []byte("persisted"))
	require.True(t, engine.BufferPool().UnpinPage(page.GetPageId(), true))

	require.NoError(t, engine.Close())

	// A new engine over the same directory reads the flushed page back
	engine2, err := Open(config)
	require.NoError(t, err)
	defer engine2.Close()

	fetched, err := engine2.BufferPool().FetchPage(page.GetPageId())
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), fetched.GetData()[:9])
	require.True(t, engine2.BufferPool().UnpinPage(fetched.GetPageId(), false))
}

func TestEngineOpenWithCompression(t *testing.T) {
	config := DefaultConfig()
	config.DataDirectory = t.TempDir()
	config.BufferPoolSize = 4
	config.PageCompression = "lz4"

	engine, err := Open(config)
	require.NoError(t, err)

	guard, err := engine.BufferPool().NewPageGuarded()
	require.NoError(t, err)
	data := guard.GetDataMut()
	for i := range data {
		data[i] = byte(i % 8)
	}
	pageID := guard.PageId()
	guard.Drop()

	require.True(t, engine.BufferPool().FlushPage(pageID))
	require.NoError(t, engine.Close())

	engine2, err := Open(config)
	require.NoError(t, err)
	defer engine2.Close()

	fetched, err := engine2.BufferPool().FetchPage(pageID)
	require.NoError(t, err)
	for i, b := range fetched.GetData() {
		require.Equal(t, byte(i%8), b, "byte %d", i)
	}
	require.True(t, engine2.BufferPool().UnpinPage(pageID, false))
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.DataDirectory = filepath.Join(t.TempDir(), "data")
	config.BufferPoolSize = 0

	_, err := Open(config)
	require.Error(t, err)
}

func TestEngineLRUPolicy(t *testing.T) {
	config := DefaultConfig()
	config.DataDirectory = t.TempDir()
	config.BufferPoolSize = 2
	config.ReplacerPolicy = "lru"

	engine, err := Open(config)
	require.NoError(t, err)
	defer engine.Close()

	// Exercise eviction under the LRU policy
	var ids []uint32
	for i := 0; i < 4; i++ {
		page, err := engine.BufferPool().NewPage()
		require.NoError(t, err)
		ids = append(ids, page.GetPageId())
		require.True(t, engine.BufferPool().UnpinPage(page.GetPageId(), true))
	}

	for _, id := range ids {
		page, err := engine.BufferPool().FetchPage(id)
		require.NoError(t, err)
		require.True(t, engine.BufferPool().UnpinPage(id, false))
		assert.Equal(t, id, page.GetPageId())
	}
}
