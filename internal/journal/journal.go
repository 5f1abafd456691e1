// Package journal records one JSON line per engine decision so a cycle can be
// reconstructed after the fact. Files rotate daily; closed days are shipped to
// an archive backend.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/journal/archive"
	"go.uber.org/zap"
)

// Entry kinds.
const (
	KindRule   = "rule"
	KindForced = "forced"
	KindSkip   = "skip"
	KindNoop   = "noop"
)

// Entry is one journaled decision.
type Entry struct {
	CycleID   string            `json:"cycle_id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"kind"`
	Rule      string            `json:"rule,omitempty"`
	State     string            `json:"state,omitempty"`
	Intent    *core.OrderIntent `json:"intent,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Journal appends entries to a date-named JSON-lines file and archives the
// previous file when the date rolls over.
type Journal struct {
	dir     string
	store   archive.Storage
	log     *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	file    *os.File
	curDate string
}

// New opens a journal writing under dir. store may be nil, in which case
// rotated files stay in dir.
func New(dir string, store archive.Storage, log *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{dir: dir, store: store, log: log, now: time.Now}, nil
}

func fileName(date string) string {
	return "decisions-" + date + ".jsonl"
}

// Record appends one entry. Journal failures are logged, never fatal: the
// engine must keep trading even when the journal disk is sick.
func (j *Journal) Record(ctx context.Context, e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = j.now()
	}

	date := e.Timestamp.Format("2006-01-02")
	if err := j.rotateLocked(ctx, date); err != nil {
		j.log.Error("journal rotation failed", zap.Error(err))
		return
	}

	line, err := json.Marshal(e)
	if err != nil {
		j.log.Error("journal entry marshal failed", zap.Error(err))
		return
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		j.log.Error("journal write failed", zap.Error(err))
	}
}

// rotateLocked opens the file for date, archiving the closed previous day.
func (j *Journal) rotateLocked(ctx context.Context, date string) error {
	if j.file != nil && j.curDate == date {
		return nil
	}

	if j.file != nil {
		closedDate := j.curDate
		closedPath := filepath.Join(j.dir, fileName(closedDate))
		if err := j.file.Close(); err != nil {
			j.log.Warn("closing journal file", zap.Error(err))
		}
		j.file = nil
		if j.store != nil {
			if err := j.archiveFile(ctx, closedDate, closedPath); err != nil {
				j.log.Error("archiving journal file", zap.String("path", closedPath), zap.Error(err))
			}
		}
	}

	f, err := os.OpenFile(filepath.Join(j.dir, fileName(date)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	j.file = f
	j.curDate = date
	return nil
}

func (j *Journal) archiveFile(ctx context.Context, date, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := j.store.Write(ctx, fileName(date), data); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		j.log.Warn("removing archived journal file", zap.Error(err))
	}
	j.log.Info("journal file archived", zap.String("date", date))
	return nil
}

// Close flushes and closes the current file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
