package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kyuwon-dev/kisengine/internal/journal/archive"
)

// dateOf extracts the date from a journal file name, e.g.
// "decisions-2026-03-02.jsonl" yields "2026-03-02".
func dateOf(name string) (string, bool) {
	rest, ok := strings.CutPrefix(filepath.Base(name), "decisions-")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ".jsonl")
}

// ListDates returns every date with a journal file, merging the hot
// directory with the archive, deduplicated and sorted ascending.
func ListDates(ctx context.Context, dir string, store archive.Storage) ([]string, error) {
	seen := make(map[string]struct{})

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, e := range entries {
		if date, ok := dateOf(e.Name()); ok {
			seen[date] = struct{}{}
		}
	}

	if store != nil {
		names, err := store.List(ctx, "decisions-")
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if date, ok := dateOf(name); ok {
				seen[date] = struct{}{}
			}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// ReadDate returns the entries recorded for one date, reading the hot file
// when it is still open and falling back to the archive for shipped days.
func ReadDate(ctx context.Context, dir string, store archive.Storage, date string) ([]Entry, error) {
	name := fileName(date)

	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) && store != nil {
		ok, exErr := store.Exists(ctx, name)
		if exErr != nil {
			return nil, exErr
		}
		if !ok {
			return nil, fmt.Errorf("no journal recorded for %s", date)
		}
		data, err = store.Read(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	return parseEntries(data)
}

func parseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("corrupt journal line: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
