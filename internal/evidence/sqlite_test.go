package evidence

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "evidence.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndQueryEvidence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.RecordEvidence(ctx, "ws1", "stale_engagement", "no replies on d1", []string{"d1", "d2"}, now); err != nil {
		t.Fatalf("RecordEvidence() error = %v", err)
	}
	if err := store.RecordEvidence(ctx, "ws1", "stale_engagement", "payload only", nil, now); err != nil {
		t.Fatalf("RecordEvidence() error = %v", err)
	}

	evidence, err := store.RecentEvidence(ctx, "ws1", "stale_engagement", time.Hour)
	if err != nil {
		t.Fatalf("RecentEvidence() error = %v", err)
	}
	if len(evidence) != 2 {
		t.Fatalf("got %d evidence rows, want 2", len(evidence))
	}

	if len(evidence[0].DealIDs) != 2 || evidence[0].DealIDs[0] != "d1" {
		t.Errorf("deal ids = %v, want [d1 d2]", evidence[0].DealIDs)
	}
	if evidence[1].DealIDs != nil {
		t.Errorf("payload-only row has deal ids %v, want none", evidence[1].DealIDs)
	}
	if evidence[1].Payload != "payload only" {
		t.Errorf("payload = %q", evidence[1].Payload)
	}
}

func TestRecentEvidenceFiltersBySignalWorkspaceAndAge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rows := []struct {
		workspace string
		signal    string
		createdAt time.Time
	}{
		{"ws1", "competitor_mention", now},
		{"ws1", "competitor_mention", now.Add(-10 * 24 * time.Hour)}, // too old
		{"ws1", "single_threaded", now},                              // wrong signal
		{"ws2", "competitor_mention", now},                           // wrong workspace
	}
	for i, row := range rows {
		if err := store.RecordEvidence(ctx, row.workspace, row.signal, "payload", nil, row.createdAt); err != nil {
			t.Fatalf("RecordEvidence(%d) error = %v", i, err)
		}
	}

	evidence, err := store.RecentEvidence(ctx, "ws1", "competitor_mention", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("RecentEvidence() error = %v", err)
	}
	if len(evidence) != 1 {
		t.Errorf("got %d evidence rows, want exactly the fresh ws1 competitor row", len(evidence))
	}
}

func TestOwnerBaselineUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	avg, err := store.OwnerAverageClosedWon(ctx, "ws1", "alice")
	if err != nil {
		t.Fatalf("OwnerAverageClosedWon() error = %v", err)
	}
	if avg != 0 {
		t.Errorf("unknown owner average = %v, want 0", avg)
	}

	if err := store.SetOwnerBaseline(ctx, "ws1", "alice", 80000, 24); err != nil {
		t.Fatalf("SetOwnerBaseline() error = %v", err)
	}
	if err := store.SetOwnerBaseline(ctx, "ws1", "alice", 95000, 24); err != nil {
		t.Fatalf("SetOwnerBaseline() upsert error = %v", err)
	}

	avg, err = store.OwnerAverageClosedWon(ctx, "ws1", "alice")
	if err != nil {
		t.Fatalf("OwnerAverageClosedWon() error = %v", err)
	}
	if avg != 95000 {
		t.Errorf("owner average = %v, want the upserted 95000", avg)
	}

	avg, err = store.OwnerAverageClosedWon(ctx, "ws2", "alice")
	if err != nil {
		t.Fatalf("OwnerAverageClosedWon() error = %v", err)
	}
	if avg != 0 {
		t.Errorf("cross-workspace average = %v, want 0", avg)
	}
}

func TestRecentEvidenceMalformedDealIDsFallBackToPayload(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Write a row with a deal_ids column that is not valid JSON.
	if _, err := store.db.Exec(
		`INSERT INTO skill_evidence (workspace_id, signal, payload, deal_ids, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		"ws1", "single_threaded", "only contact on d9", "not-json", time.Now().Unix(),
	); err != nil {
		t.Fatalf("insert malformed row: %v", err)
	}

	evidence, err := store.RecentEvidence(ctx, "ws1", "single_threaded", time.Hour)
	if err != nil {
		t.Fatalf("RecentEvidence() error = %v", err)
	}
	if len(evidence) != 1 {
		t.Fatalf("got %d evidence rows, want 1", len(evidence))
	}
	if evidence[0].DealIDs != nil {
		t.Errorf("deal ids = %v, want nil for malformed list", evidence[0].DealIDs)
	}
	if evidence[0].Payload != "only contact on d9" {
		t.Errorf("payload = %q", evidence[0].Payload)
	}
}
