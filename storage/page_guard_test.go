package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPageGuardUnpinsOnDrop(t *testing.T) {
	bpm, _ := newTestPool(t, 4)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	pageID := guard.PageId()

	page, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	require.Equal(t, int32(2), page.GetPinCount())
	require.True(t, bpm.UnpinPage(pageID, false))

	guard.Drop()
	assert.Equal(t, int32(0), page.GetPinCount())

	// Drop is idempotent
	guard.Drop()
	assert.Equal(t, int32(0), page.GetPinCount())
}

func TestBasicPageGuardDirtyHint(t *testing.T) {
	bpm, dm := newTestPool(t, 4)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	pageID := guard.PageId()

	copy(guard.GetDataMut(), []byte("guarded write"))
	guard.Drop()

	// The guard unpinned with a dirty hint, so eviction must write back
	for i := 0; i < 4; i++ {
		g, err := bpm.NewPageGuarded()
		require.NoError(t, err)
		g.Drop()
	}

	stored := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(pageID, stored))
	assert.Equal(t, []byte("guarded write"), stored[:13])
}

func TestReadPageGuard(t *testing.T) {
	bpm, _ := newTestPool(t, 4)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	pageID := guard.PageId()
	guard.Drop()

	rg, err := bpm.FetchPageRead(pageID)
	require.NoError(t, err)

	// Readers share the latch
	rg2, err := bpm.FetchPageRead(pageID)
	require.NoError(t, err)

	page, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), page.latch.GetReaderCount())
	require.True(t, bpm.UnpinPage(pageID, false))

	rg.Drop()
	rg2.Drop()
	assert.Equal(t, uint32(0), page.latch.GetReaderCount())
	assert.Equal(t, int32(0), page.GetPinCount())
}

func TestWritePageGuardExcludesReaders(t *testing.T) {
	bpm, _ := newTestPool(t, 4)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	pageID := guard.PageId()
	guard.Drop()

	wg, err := bpm.FetchPageWrite(pageID)
	require.NoError(t, err)
	copy(wg.GetDataMut(), []byte("exclusive"))

	// A reader must wait until the writer drops
	var readerSaw []byte
	var done sync.WaitGroup
	done.Add(1)
	go func() {
		defer done.Done()
		rg, err := bpm.FetchPageRead(pageID)
		if err != nil {
			return
		}
		readerSaw = append(readerSaw, rg.GetData()[:9]...)
		rg.Drop()
	}()

	wg.Drop()
	done.Wait()

	assert.Equal(t, []byte("exclusive"), readerSaw)
}

func TestWritePageGuardMarksDirty(t *testing.T) {
	bpm, _ := newTestPool(t, 4)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	pageID := guard.PageId()
	guard.Drop()

	wg, err := bpm.FetchPageWrite(pageID)
	require.NoError(t, err)
	wg.Drop()

	page, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	assert.True(t, page.IsDirty())
	require.True(t, bpm.UnpinPage(pageID, false))
}

func TestFetchPageBasicMiss(t *testing.T) {
	bpm, _ := newTestPool(t, 1)

	g, err := bpm.NewPageGuarded()
	require.NoError(t, err)

	// The only frame is pinned by the guard
	_, err = bpm.FetchPageBasic(555)
	require.Error(t, err)

	g.Drop()
	g2, err := bpm.FetchPageBasic(555)
	require.NoError(t, err)
	assert.Equal(t, uint32(555), g2.PageId())
	g2.Drop()
}
