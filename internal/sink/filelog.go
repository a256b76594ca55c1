package sink

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

var _ Sink = (*FileLog)(nil)

// FileLog is the append-only address log: one UTF-8 address per line.
// The file is created on first use, never truncated, and synced after
// every batch so a crash loses at most the batch in flight.
type FileLog struct {
	path string
}

func NewFileLog(path string) (*FileLog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: log path is required", domain.ErrValidation)
	}
	return &FileLog{path: path}, nil
}

func (l *FileLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *FileLog) Append(_ context.Context, batch domain.PersistedBatch) error {
	if len(batch.Addresses) == 0 {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open address log: %w", err)
	}

	var b strings.Builder
	for _, address := range batch.Addresses {
		b.WriteString(address)
		b.WriteByte('\n')
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to address log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush address log: %w", err)
	}
	return f.Close()
}
