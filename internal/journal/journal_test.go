package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/journal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestRecordAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir, nil, nil)
	require.NoError(t, err)
	defer j.Close()

	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	j.Record(context.Background(), Entry{
		CycleID:   "c1",
		Timestamp: ts,
		Kind:      KindRule,
		Rule:      "dip-buy",
		Intent: &core.OrderIntent{
			StockCode: "005930",
			Side:      core.SideBuy,
			Quantity:  5,
			Market:    core.MarketKRX,
		},
	})
	j.Record(context.Background(), Entry{CycleID: "c2", Timestamp: ts.Add(time.Minute), Kind: KindNoop})

	entries := readEntries(t, filepath.Join(dir, "decisions-2026-03-02.jsonl"))
	require.Len(t, entries, 2)

	assert.Equal(t, "c1", entries[0].CycleID)
	assert.Equal(t, KindRule, entries[0].Kind)
	assert.Equal(t, "dip-buy", entries[0].Rule)
	require.NotNil(t, entries[0].Intent)
	assert.Equal(t, int64(5), entries[0].Intent.Quantity)

	assert.Equal(t, KindNoop, entries[1].Kind)
	assert.Nil(t, entries[1].Intent)
}

func TestDateRolloverArchivesClosedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.NewLocalFS(filepath.Join(dir, "cold"))
	require.NoError(t, err)

	j, err := New(filepath.Join(dir, "hot"), store, nil)
	require.NoError(t, err)
	defer j.Close()

	day1 := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 1, 0, 0, time.UTC)
	ctx := context.Background()

	j.Record(ctx, Entry{CycleID: "c1", Timestamp: day1, Kind: KindNoop})
	j.Record(ctx, Entry{CycleID: "c2", Timestamp: day2, Kind: KindNoop})

	// Day one moved to the archive and left the hot directory.
	ok, err := store.Exists(ctx, "decisions-2026-03-02.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(dir, "hot", "decisions-2026-03-02.jsonl"))
	assert.True(t, os.IsNotExist(err))

	// Day two keeps writing in place.
	entries := readEntries(t, filepath.Join(dir, "hot", "decisions-2026-03-03.jsonl"))
	require.Len(t, entries, 1)
	assert.Equal(t, "c2", entries[0].CycleID)

	data, err := store.Read(ctx, "decisions-2026-03-02.jsonl")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cycle_id":"c1"`)
}

func TestListDatesMergesHotAndArchive(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.NewLocalFS(filepath.Join(dir, "cold"))
	require.NoError(t, err)

	j, err := New(filepath.Join(dir, "hot"), store, nil)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	j.Record(ctx, Entry{Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), Kind: KindNoop})
	j.Record(ctx, Entry{Timestamp: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), Kind: KindNoop})

	// 03-02 is archived by the rollover, 03-04 is still hot.
	dates, err := ListDates(ctx, filepath.Join(dir, "hot"), store)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-02", "2026-03-04"}, dates)
}

func TestReadDateFallsBackToArchive(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.NewLocalFS(filepath.Join(dir, "cold"))
	require.NoError(t, err)

	j, err := New(filepath.Join(dir, "hot"), store, nil)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	j.Record(ctx, Entry{CycleID: "c1", Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), Kind: KindForced})
	j.Record(ctx, Entry{CycleID: "c2", Timestamp: time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), Kind: KindNoop})

	// The archived day is readable through the store.
	entries, err := ReadDate(ctx, filepath.Join(dir, "hot"), store, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].CycleID)
	assert.Equal(t, KindForced, entries[0].Kind)

	// The open day is readable from the hot directory.
	entries, err = ReadDate(ctx, filepath.Join(dir, "hot"), store, "2026-03-03")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c2", entries[0].CycleID)

	// A day nothing was recorded for is a clean error.
	_, err = ReadDate(ctx, filepath.Join(dir, "hot"), store, "2026-01-01")
	assert.Error(t, err)
}

func TestRolloverWithoutArchiveKeepsFile(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir, nil, nil)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	j.Record(ctx, Entry{Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), Kind: KindNoop})
	j.Record(ctx, Entry{Timestamp: time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), Kind: KindNoop})

	_, err = os.Stat(filepath.Join(dir, "decisions-2026-03-02.jsonl"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "decisions-2026-03-03.jsonl"))
	assert.NoError(t, err)
}
