package cache

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"capprices/internal/core"

	"github.com/shopspring/decimal"
)

func sampleSnapshot() core.Snapshot {
	start := time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)
	return core.Snapshot{
		Monthly: core.MonthlyStats{
			{Entity: "FR", Months: []core.MonthStat{{
				Label: "2022-12",
				Start: start,
				Mean:  decimal.RequireFromString("2.5"),
				Min:   decimal.RequireFromString("2"),
				Max:   decimal.RequireFromString("3"),
			}}},
			{Entity: "DE", Months: []core.MonthStat{}},
		},
		Current: core.CurrentPeriodValues{
			{Entity: "FR", Days: []core.DayValue{{Date: "2022-12-01", Value: "3.00"}}},
			{Entity: "DE", Days: []core.DayValue{}},
		},
	}
}

func sameSnapshot(t *testing.T, got, want core.Snapshot) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot differs:\ngot  %#v\nwant %#v", got, want)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	store := NewStore(path, false)

	want := sampleSnapshot()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sameSnapshot(t, got, want)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache should be kept when deletion is off: %v", err)
	}
}

func TestStoreRoundTripEmpty(t *testing.T) {
	tests := []struct {
		name string
		snap core.Snapshot
	}{
		{name: "no entity", snap: core.Snapshot{Monthly: core.MonthlyStats{}, Current: core.CurrentPeriodValues{}}},
		{name: "nil halves", snap: core.Snapshot{}},
		{
			name: "entities without rows",
			snap: core.Snapshot{
				Monthly: core.MonthlyStats{{Entity: "FR", Months: []core.MonthStat{}}},
				Current: core.CurrentPeriodValues{{Entity: "FR"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(filepath.Join(t.TempDir(), DefaultFileName), false)
			if err := store.Save(tt.snap); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Monthly == nil || got.Current == nil {
				t.Fatalf("halves must be non-nil: %#v", got)
			}
			for _, ed := range got.Current {
				if ed.Days == nil {
					t.Fatalf("days of %s must be non-nil", ed.Entity)
				}
			}
			if len(got.Monthly) != len(tt.snap.Monthly) || len(got.Current) != len(tt.snap.Current) {
				t.Errorf("entity count changed: %#v", got)
			}
		})
	}
}

func TestStoreDeletesAfterLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	store := NewStore(path, true)

	if err := store.Save(sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cache file should be deleted, stat err=%v", err)
	}
	if _, err := store.Load(); !errors.Is(err, core.ErrMissingCache) {
		t.Fatalf("second load should report a missing cache, got %v", err)
	}
}

func TestStoreMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewStore(filepath.Join(dir, "absent.gob"), true).Load(); !errors.Is(err, core.ErrMissingCache) {
		t.Fatalf("expected ErrMissingCache, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.gob")
	if err := os.WriteFile(corrupt, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewStore(corrupt, true).Load(); !errors.Is(err, core.ErrMissingCache) {
		t.Fatalf("expected ErrMissingCache for corrupt file, got %v", err)
	}
}

func TestStoreSaveLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, DefaultFileName), false)
	for i := 0; i < 2; i++ {
		if err := store.Save(sampleSnapshot()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != DefaultFileName {
		t.Fatalf("unexpected directory content: %v", entries)
	}
}
