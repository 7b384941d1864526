package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sampleRecord(runID string, seq int, nodeID string, status Status) Record {
	now := time.Now()
	return Record{
		RunID:      runID,
		Seq:        seq,
		NodeID:     nodeID,
		Status:     status,
		Value:      nodeID + "-value",
		StartedAt:  now,
		FinishedAt: now.Add(5 * time.Millisecond),
		Duration:   5 * time.Millisecond,
	}
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load ordered by seq", func(t *testing.T) {
		st := NewMemStore()
		// Saved out of order on purpose.
		for _, seq := range []int{2, 1, 3} {
			if err := st.SaveOutcome(ctx, sampleRecord("run-a", seq, "n", StatusCompleted)); err != nil {
				t.Fatalf("SaveOutcome failed: %v", err)
			}
		}

		records, err := st.LoadRun(ctx, "run-a")
		if err != nil {
			t.Fatalf("LoadRun failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("loaded %d records, want 3", len(records))
		}
		for i, rec := range records {
			if rec.Seq != i+1 {
				t.Errorf("record %d has seq %d", i, rec.Seq)
			}
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		st := NewMemStore()
		if _, err := st.LoadRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("runs are isolated", func(t *testing.T) {
		st := NewMemStore()
		st.SaveOutcome(ctx, sampleRecord("run-a", 1, "n", StatusCompleted))
		st.SaveOutcome(ctx, sampleRecord("run-b", 1, "n", StatusFailed))

		runs, err := st.Runs(ctx)
		if err != nil {
			t.Fatalf("Runs failed: %v", err)
		}
		if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
			t.Errorf("Runs = %v, want [run-a run-b]", runs)
		}

		if err := st.DeleteRun(ctx, "run-a"); err != nil {
			t.Fatalf("DeleteRun failed: %v", err)
		}
		if _, err := st.LoadRun(ctx, "run-a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("deleted run still loads: %v", err)
		}
		if _, err := st.LoadRun(ctx, "run-b"); err != nil {
			t.Errorf("unrelated run lost: %v", err)
		}
	})

	t.Run("load returns a copy", func(t *testing.T) {
		st := NewMemStore()
		st.SaveOutcome(ctx, sampleRecord("run-a", 1, "n", StatusCompleted))

		records, _ := st.LoadRun(ctx, "run-a")
		records[0].NodeID = "tampered"

		reloaded, _ := st.LoadRun(ctx, "run-a")
		if reloaded[0].NodeID != "n" {
			t.Error("LoadRun exposed internal storage")
		}
	})
}
