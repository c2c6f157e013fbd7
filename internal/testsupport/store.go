package testsupport

import (
	"context"
	"testing"

	"onemin/internal/approval"
	"onemin/internal/config"
	"onemin/internal/ledger"
)

// MustOpenApprovals opens the approval store configured in cfg.
func MustOpenApprovals(t testing.TB, cfg *config.Config) *approval.Store {
	t.Helper()

	store, err := approval.Open(cfg.ApprovalStorePath())
	if err != nil {
		t.Fatalf("approval.Open: %v", err)
	}
	return store
}

// MustOpenLedger opens the ingestion ledger and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRequest creates a pending approval request for tests.
func NewRequest(t testing.TB, store *approval.Store, videoPath, title string) *approval.Request {
	t.Helper()

	req, err := store.Create(context.Background(), videoPath, approval.Snapshot{
		Title:       title,
		Description: title + " description",
		Tags:        []string{"test"},
		CategoryID:  "22",
	}, "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return req
}
