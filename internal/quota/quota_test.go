package quota_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/rotarr/internal/catalog"
	"github.com/vmunix/rotarr/internal/catalog/mocks"
	"github.com/vmunix/rotarr/internal/ledger"
	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/quota"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeDisk maps external ids to the bytes their files occupy.
type fakeDisk struct {
	mu    sync.Mutex
	files map[string]int64
	reads int
}

func (d *fakeDisk) UsageBytes(string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	var total int64
	for _, n := range d.files {
		total += n
	}
	return total
}

func (d *fakeDisk) delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, id)
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupLedger(t *testing.T, kind media.Kind, ids ...string) *ledger.Store {
	t.Helper()
	s, err := ledger.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	for i, id := range ids {
		require.NoError(t, s.Insert(context.Background(), &ledger.Entry{
			ExternalID: id,
			Kind:       kind,
			Title:      "Title " + id,
			ImportedAt: baseTime.Add(time.Duration(i) * time.Hour),
		}))
	}
	return s
}

// removingCatalog returns a mock movie catalog whose Remove deletes the files from disk.
func removingCatalog(ctrl *gomock.Controller, disk *fakeDisk) *mocks.MockCatalog {
	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	cat.EXPECT().Remove(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id string) error {
		disk.delete(id)
		return nil
	}).AnyTimes()
	return cat
}

func movieLimit(bytes int64) map[media.Kind]quota.Limit {
	return map[media.Kind]quota.Limit{media.KindMovie: {Root: "/media/movies", LimitBytes: bytes}}
}

func ids(entries []*ledger.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ExternalID)
	}
	return out
}

func TestEnforce_EvictsOldestUntilUnderLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	// Usage 150 against a limit of 100: evicting X (60) is enough, Y stays.
	disk := &fakeDisk{files: map[string]int64{"X": 60, "Y": 90}}
	store := setupLedger(t, media.KindMovie, "X", "Y")
	g := quota.New(disk, store, catalog.NewSet(removingCatalog(ctrl, disk)), movieLimit(100), testLogger())

	rep, err := g.Enforce(ctx, media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, ids(rep.Evicted))
	assert.Equal(t, int64(150), rep.StartBytes)
	assert.Equal(t, int64(90), rep.EndBytes)
	assert.False(t, rep.Unenforceable)
	assert.NoError(t, rep.Err())

	ok, err := store.Contains(ctx, "X")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.Contains(ctx, "Y")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnforce_UnderLimitIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"X": 40}}
	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	store := setupLedger(t, media.KindMovie, "X")

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(100), testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Empty(t, rep.Evicted)
	assert.Equal(t, int64(40), rep.EndBytes)
}

func TestEnforce_OrderingOldestFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"A": 10, "B": 10, "C": 10, "D": 10}}
	store := setupLedger(t, media.KindMovie, "A", "B", "C", "D")

	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	gomock.InOrder(
		cat.EXPECT().Remove(gomock.Any(), "A").DoAndReturn(func(_ context.Context, id string) error { disk.delete(id); return nil }),
		cat.EXPECT().Remove(gomock.Any(), "B").DoAndReturn(func(_ context.Context, id string) error { disk.delete(id); return nil }),
	)

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(20), testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(rep.Evicted))
}

func TestEnforce_TerminatesWhenLedgerExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	// Untracked files keep usage above the limit no matter what is evicted.
	disk := &fakeDisk{files: map[string]int64{"A": 10, "B": 10, "untracked": 500}}
	store := setupLedger(t, media.KindMovie, "A", "B")

	g := quota.New(disk, store, catalog.NewSet(removingCatalog(ctrl, disk)), movieLimit(100), testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(rep.Evicted))
	assert.True(t, rep.Unenforceable)
	assert.ErrorIs(t, rep.Err(), quota.ErrQuotaUnenforceable)

	n, err := store.Count(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnforce_EvictionDoesNotShrinkUsage(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"stuck": 300}}
	store := setupLedger(t, media.KindMovie, "A", "B", "C")

	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	cat.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(100), testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Len(t, rep.Evicted, 3)
	assert.True(t, rep.Unenforceable)
}

func TestEnforce_OnlyEvictsRequestedKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	disk := &fakeDisk{files: map[string]int64{"m1": 200}}
	store := setupLedger(t, media.KindMovie, "m1")
	require.NoError(t, store.Insert(ctx, &ledger.Entry{ExternalID: "81189", Kind: media.KindShow, ImportedAt: baseTime.Add(-time.Hour)}))

	g := quota.New(disk, store, catalog.NewSet(removingCatalog(ctrl, disk)), movieLimit(100), testLogger())
	rep, err := g.Enforce(ctx, media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(rep.Evicted))

	ok, err := store.Contains(ctx, "81189")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnforce_RemoveFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	disk := &fakeDisk{files: map[string]int64{"A": 100, "B": 100}}
	store := setupLedger(t, media.KindMovie, "A", "B")

	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	cat.EXPECT().Remove(gomock.Any(), "A").Return(errors.New("connection refused"))

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(50), testLogger())
	rep, err := g.Enforce(ctx, media.KindMovie)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrRemoveFailed)
	assert.Empty(t, rep.Evicted)

	ok, err := store.Contains(ctx, "A")
	require.NoError(t, err)
	assert.True(t, ok, "entry stays in the ledger when the catalog removal fails")
}

func TestEnforce_RemoveFailureKeepsWrappedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"A": 100}}
	store := setupLedger(t, media.KindMovie, "A")

	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()
	cat.EXPECT().Remove(gomock.Any(), "A").Return(fmt.Errorf("%w: movie A: %w", catalog.ErrRemoveFailed, catalog.ErrUnauthorized))

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(50), testLogger())
	_, err := g.Enforce(context.Background(), media.KindMovie)
	assert.ErrorIs(t, err, catalog.ErrRemoveFailed)
	assert.ErrorIs(t, err, catalog.ErrUnauthorized)
}

func TestEnforce_MaxEvictions(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"A": 50, "B": 50, "C": 50}}
	store := setupLedger(t, media.KindMovie, "A", "B", "C")
	limits := map[media.Kind]quota.Limit{media.KindMovie: {Root: "/m", LimitBytes: 10, MaxEvictions: 1}}

	g := quota.New(disk, store, catalog.NewSet(removingCatalog(ctrl, disk)), limits, testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(rep.Evicted))
	assert.True(t, rep.Capped)
	assert.False(t, rep.Unenforceable)
}

func TestEnforce_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	disk := &fakeDisk{files: map[string]int64{"A": 100, "B": 100}}
	store := setupLedger(t, media.KindMovie, "A", "B")

	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(50), testLogger(), quota.WithDryRun(true))
	rep, err := g.Enforce(ctx, media.KindMovie)
	require.NoError(t, err)
	require.NotNil(t, rep.WouldEvict)
	assert.Equal(t, "A", rep.WouldEvict.ExternalID)
	assert.Empty(t, rep.Evicted)

	n, err := store.Count(ctx, media.KindMovie)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEnforce_ZeroLimitDisables(t *testing.T) {
	disk := &fakeDisk{files: map[string]int64{"A": 100}}
	store := setupLedger(t, media.KindMovie, "A")

	g := quota.New(disk, store, catalog.NewSet(), movieLimit(0), testLogger())
	rep, err := g.Enforce(context.Background(), media.KindMovie)
	require.NoError(t, err)
	assert.True(t, rep.Disabled)
	assert.Zero(t, disk.reads)
}

func TestEnforce_NoCatalog(t *testing.T) {
	disk := &fakeDisk{files: map[string]int64{"A": 100}}
	store := setupLedger(t, media.KindMovie, "A")

	g := quota.New(disk, store, catalog.NewSet(), movieLimit(50), testLogger())
	_, err := g.Enforce(context.Background(), media.KindMovie)
	assert.ErrorIs(t, err, quota.ErrNoCatalog)
}

func TestEnforce_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	disk := &fakeDisk{files: map[string]int64{"A": 100}}
	store := setupLedger(t, media.KindMovie, "A")
	cat := mocks.NewMockCatalog(ctrl)
	cat.EXPECT().Kind().Return(media.KindMovie).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := quota.New(disk, store, catalog.NewSet(cat), movieLimit(50), testLogger())
	_, err := g.Enforce(ctx, media.KindMovie)
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := store.Contains(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGiB(t *testing.T) {
	assert.Equal(t, int64(1<<30), quota.GiB(1))
	assert.Equal(t, int64(3<<29), quota.GiB(1.5))
	assert.Zero(t, quota.GiB(0))
}
