package observer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestLedgerWatcher_FiresOnRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picks.csv")
	if err := os.WriteFile(path, []byte("commit_hash,status,timestamp,commit_message\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewLedgerWatcher(path, func(string) {
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.Start(context.Background())

	// Mimic the ledger's temp-file-then-rename update.
	tmp := filepath.Join(dir, ".ledger-123")
	if err := os.WriteFile(tmp, []byte("updated\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("callback never fired after ledger replace")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLedgerWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picks.csv")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewLedgerWatcher(path, func(string) {
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.Start(context.Background())

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("callback fired %d times for an unrelated file", fired.Load())
	}
}
