package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *DB {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	runs, err := l.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List on empty db: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected 0 runs, got %d", len(runs))
	}
}

func TestRecordAndList(t *testing.T) {
	l := tempDB(t)
	ctx := context.Background()
	start := time.UnixMilli(1700000000000)

	id, err := l.Record(ctx, Run{
		Kind:       KindGenerate,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Dataset:    "siniestros.csv",
		Mapping:    "causa_mapping.csv",
		Labels:     9371,
		References: 6200,
		Candidates: 3171,
		ByKind:     map[string]int{"typo": 12, "truncado": 40},
		Rows:       120000,
		Skipped:    3,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	runs, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != StatusOK {
		t.Errorf("status = %q, want %q", r.Status, StatusOK)
	}
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("duration = %v", r.Duration())
	}
	if r.ByKind["truncado"] != 40 || r.ByKind["typo"] != 12 {
		t.Errorf("by_kind = %v", r.ByKind)
	}
	if r.Labels != 9371 || r.References != 6200 || r.Candidates != 3171 || r.Skipped != 3 {
		t.Errorf("counts not round-tripped: %+v", r)
	}
	if r.Error != "" {
		t.Errorf("unexpected error text %q", r.Error)
	}
}

func TestRecord_ErrorStatus(t *testing.T) {
	l := tempDB(t)
	ctx := context.Background()

	if _, err := l.Record(ctx, Run{Kind: KindApply, Error: "mapping file not found"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	runs, err := l.List(ctx, KindApply, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != StatusError || runs[0].Error != "mapping file not found" {
		t.Fatalf("got status=%q error=%q", runs[0].Status, runs[0].Error)
	}
	if runs[0].StartedAt.IsZero() || runs[0].FinishedAt.IsZero() {
		t.Fatal("timestamps not stamped")
	}
}

func TestRecord_EmptyKind(t *testing.T) {
	l := tempDB(t)
	if _, err := l.Record(context.Background(), Run{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestList_FilterAndLimit(t *testing.T) {
	l := tempDB(t)
	ctx := context.Background()

	for _, k := range []string{KindGenerate, KindApply, KindGenerate, KindApply, KindApply} {
		if _, err := l.Record(ctx, Run{Kind: k}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(all))
	}
	if all[0].ID != 5 || all[4].ID != 1 {
		t.Fatalf("expected most recent first, got ids %d..%d", all[0].ID, all[4].ID)
	}

	applies, err := l.List(ctx, KindApply, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(applies) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(applies))
	}
	for _, r := range applies {
		if r.Kind != KindApply {
			t.Fatalf("filter leaked kind %q", r.Kind)
		}
	}
	if applies[0].ID != 5 || applies[1].ID != 4 {
		t.Fatalf("got ids %d, %d", applies[0].ID, applies[1].ID)
	}
}

func TestReopen_KeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := l.Record(ctx, Run{Kind: KindGenerate}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	runs, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after reopen, got %d", len(runs))
	}
}
