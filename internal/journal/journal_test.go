package journal

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roulette-bot/internal/model"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestAppendCreatesWorkbookWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "spin.xlsx")
	j := New(path)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := j.Append(
		model.Grant{UserID: 10, ItemID: 3, Username: "neo", ChatID: -100, Timestamp: ts},
		model.CatalogItem{ID: 3, Name: "Корона", Price: 500, Weight: 0.01},
	)
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"timestamp", "user_id", "username", "chat_id", "item_id", "item_name", "price", "chance"}, rows[0])
	assert.Equal(t, []string{"2024-05-01T12:00:00Z", "10", "neo", "-100", "3", "Корона", "500", "0.01"}, rows[1])
}

func TestAppendAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spin.xlsx")
	item := model.CatalogItem{ID: 1, Name: "Монета", Price: 1, Weight: 0.5}

	require.NoError(t, New(path).Append(model.Grant{UserID: 1, ItemID: 1, Timestamp: time.Now()}, item))
	require.NoError(t, New(path).Append(model.Grant{UserID: 2, ItemID: 1, Timestamp: time.Now()}, item))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "2", rows[2][1])
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spin.xlsx")
	j := New(path)
	item := model.CatalogItem{ID: 1, Name: "Монета", Price: 1, Weight: 0.5}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			assert.NoError(t, j.Append(model.Grant{UserID: uid, ItemID: 1, Timestamp: time.Now()}, item))
		}(int64(i))
	}
	wg.Wait()

	assert.Len(t, readRows(t, path), 11)
}

func TestWriterFlushesQueueOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spin.xlsx")
	w := NewWriter(New(path), 16, zerolog.Nop())
	item := model.CatalogItem{ID: 1, Name: "Монета", Price: 1, Weight: 0.5}

	for i := 1; i <= 5; i++ {
		require.NoError(t, w.Append(model.Grant{UserID: int64(i), ItemID: 1, Timestamp: time.Now()}, item))
	}
	assert.Equal(t, 5, w.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	rows := readRows(t, path)
	require.Len(t, rows, 6)
	for i := 1; i <= 5; i++ {
		assert.Equal(t, strconv.Itoa(i), rows[i][1], "rows keep queue order")
	}
}

func TestWriterAppendDoesNotBlock(t *testing.T) {
	w := NewWriter(New(filepath.Join(t.TempDir(), "spin.xlsx")), 2, zerolog.Nop())
	item := model.CatalogItem{ID: 1, Name: "Монета", Price: 1, Weight: 0.5}

	require.NoError(t, w.Append(model.Grant{UserID: 1}, item))
	require.NoError(t, w.Append(model.Grant{UserID: 2}, item))
	assert.ErrorIs(t, w.Append(model.Grant{UserID: 3}, item), ErrQueueFull)
}

func TestWriterRunWritesWhileRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spin.xlsx")
	w := NewWriter(New(path), 16, zerolog.Nop())
	item := model.CatalogItem{ID: 1, Name: "Монета", Price: 1, Weight: 0.5}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.NoError(t, w.Append(model.Grant{UserID: 1, ItemID: 1, Timestamp: time.Now()}, item))
	assert.Eventually(t, func() bool { return w.Pending() == 0 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Len(t, readRows(t, path), 2)
}
