package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/vmunix/rotarr/internal/media"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entryAt(id string, kind media.Kind, offset time.Duration) *Entry {
	return &Entry{
		ExternalID: id,
		Kind:       kind,
		Title:      "Title " + id,
		SourceList: "trakt/trending",
		ImportedAt: baseTime.Add(offset),
	}
}
