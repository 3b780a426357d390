package controller

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
	"github.com/hochfrequenz/cherry-orch/internal/ledger"
)

// fakeGit scripts cherry-pick outcomes per hash
type fakeGit struct {
	subjects   map[string]string
	conflictOn map[string]bool
	polls      int // HasConflicts answers true this many times, then false
	picked     []string
	continued  int
}

func (f *fakeGit) Subject(hash string) (string, error) {
	if s, ok := f.subjects[hash]; ok {
		return s, nil
	}
	return "commit " + hash, nil
}

func (f *fakeGit) CherryPick(hash string) error {
	f.picked = append(f.picked, hash)
	if f.conflictOn[hash] {
		return errors.New("could not apply")
	}
	return nil
}

func (f *fakeGit) Continue() error {
	f.continued++
	return nil
}

func (f *fakeGit) HasConflicts() (bool, error) {
	if f.polls > 0 {
		f.polls--
		return true, nil
	}
	return false, nil
}

func newLedger(t *testing.T, hashes ...string) *ledger.Ledger {
	t.Helper()
	l := ledger.New(filepath.Join(t.TempDir(), "picks.csv"), ledger.FormatCSV, ledger.Links{})
	var recs []domain.CommitRecord
	for _, h := range hashes {
		recs = append(recs, domain.CommitRecord{Hash: h, Message: "commit " + h})
	}
	if err := l.Seed(recs); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRun_YesNoYes(t *testing.T) {
	hashes := []string{"aaa", "bbb", "ccc"}
	led := newLedger(t, hashes...)
	g := &fakeGit{}
	var out bytes.Buffer

	c := New(g, led, strings.NewReader("y\nn\ny\n"), &out, Options{})
	res, err := c.Run(context.Background(), hashes)
	if err != nil {
		t.Fatal(err)
	}
	if res.Picked != 2 || res.Skipped != 1 || res.Aborted {
		t.Errorf("result = %+v, want 2 picked, 1 skipped", res)
	}

	want := []domain.Status{domain.StatusSuccess, domain.StatusSkipped, domain.StatusSuccess}
	recs := led.Records()
	for i, rec := range recs {
		if rec.Status != want[i] {
			t.Errorf("records[%d].Status = %s, want %s", i, rec.Status, want[i])
		}
		if rec.Timestamp == "" {
			t.Errorf("records[%d] has empty timestamp", i)
		}
	}

	// Only the two accepted commits reached git.
	if len(g.picked) != 2 {
		t.Errorf("picked = %v, want aaa and ccc only", g.picked)
	}
}

func TestRun_UnrecognizedInputSkips(t *testing.T) {
	led := newLedger(t, "aaa")
	g := &fakeGit{}

	c := New(g, led, strings.NewReader("wat\n"), &bytes.Buffer{}, Options{})
	res, err := c.Run(context.Background(), []string{"aaa"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 {
		t.Errorf("result = %+v, want 1 skipped", res)
	}
	if len(g.picked) != 0 {
		t.Errorf("git invoked on skipped commit: %v", g.picked)
	}
}

func TestRun_QuitStopsImmediately(t *testing.T) {
	hashes := []string{"aaa", "bbb", "ccc", "ddd"}
	led := newLedger(t, hashes...)
	g := &fakeGit{}

	c := New(g, led, strings.NewReader("y\nq\n"), &bytes.Buffer{}, Options{})
	res, err := c.Run(context.Background(), hashes)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Aborted || res.Picked != 1 {
		t.Errorf("result = %+v, want aborted after 1 pick", res)
	}

	finalized := 0
	for _, rec := range led.Records() {
		if rec.Status.Terminal() {
			finalized++
		}
	}
	if finalized != 1 {
		t.Errorf("finalized records = %d, want exactly 1; rest stay pending", finalized)
	}
	if len(g.picked) != 1 {
		t.Errorf("picked = %v, want only aaa", g.picked)
	}
}

func TestRun_UnattendedConflictPolling(t *testing.T) {
	hashes := []string{"aaa", "bbb"}
	led := newLedger(t, hashes...)
	g := &fakeGit{
		conflictOn: map[string]bool{"aaa": true},
		polls:      2,
	}

	c := New(g, led, strings.NewReader(""), &bytes.Buffer{}, Options{
		Unattended:   true,
		PollInterval: time.Millisecond,
	})
	res, err := c.Run(context.Background(), hashes)
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflicts != 1 || res.Picked != 1 {
		t.Errorf("result = %+v, want 1 conflict-resolved and 1 picked", res)
	}
	if g.continued != 1 {
		t.Errorf("Continue called %d times, want 1", g.continued)
	}

	rec, _ := led.Get("aaa")
	if rec.Status != domain.StatusConflictResolved {
		t.Errorf("aaa status = %s, want conflict-resolved", rec.Status)
	}
	rec, _ = led.Get("bbb")
	if rec.Status != domain.StatusSuccess {
		t.Errorf("bbb status = %s, want success", rec.Status)
	}
}

func TestRun_UnattendedConflictTimeout(t *testing.T) {
	led := newLedger(t, "aaa")
	g := &fakeGit{
		conflictOn: map[string]bool{"aaa": true},
		polls:      1 << 30, // never clears
	}

	c := New(g, led, strings.NewReader(""), &bytes.Buffer{}, Options{
		Unattended:   true,
		PollInterval: time.Millisecond,
		PollTimeout:  10 * time.Millisecond,
	})
	_, err := c.Run(context.Background(), []string{"aaa"})
	if !errors.Is(err, ErrConflictTimeout) {
		t.Fatalf("err = %v, want ErrConflictTimeout", err)
	}

	// The commit stays pending so a resumed run retries it.
	rec, _ := led.Get("aaa")
	if rec.Status != domain.StatusPending {
		t.Errorf("aaa status = %s, want pending after timeout", rec.Status)
	}
}

func TestRun_InteractiveConflictAcknowledgment(t *testing.T) {
	led := newLedger(t, "aaa")
	g := &fakeGit{conflictOn: map[string]bool{"aaa": true}}
	var out bytes.Buffer

	// y to pick, then enter to acknowledge the resolved conflict.
	c := New(g, led, strings.NewReader("y\n\n"), &out, Options{})
	res, err := c.Run(context.Background(), []string{"aaa"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflicts != 1 {
		t.Errorf("result = %+v, want 1 conflict-resolved", res)
	}
	if !strings.Contains(out.String(), "cherry-pick --continue") {
		t.Errorf("missing resolution instructions in output:\n%s", out.String())
	}
	if g.continued != 0 {
		t.Error("interactive mode must not run cherry-pick --continue itself")
	}
}

func TestRun_SkipsAlreadyRecordedCommits(t *testing.T) {
	hashes := []string{"aaa", "bbb"}
	led := newLedger(t, hashes...)
	if err := led.Upsert("aaa", domain.StatusSuccess, domain.Now(), "commit aaa"); err != nil {
		t.Fatal(err)
	}
	g := &fakeGit{}

	c := New(g, led, strings.NewReader(""), &bytes.Buffer{}, Options{Unattended: true})
	res, err := c.Run(context.Background(), hashes)
	if err != nil {
		t.Fatal(err)
	}
	if res.Picked != 1 {
		t.Errorf("result = %+v, want 1 picked", res)
	}
	if len(g.picked) != 1 || g.picked[0] != "bbb" {
		t.Errorf("picked = %v, want only bbb", g.picked)
	}
}

func TestRun_UnattendedCancellation(t *testing.T) {
	led := newLedger(t, "aaa")
	g := &fakeGit{
		conflictOn: map[string]bool{"aaa": true},
		polls:      1 << 30,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	c := New(g, led, strings.NewReader(""), &bytes.Buffer{}, Options{
		Unattended:   true,
		PollInterval: time.Millisecond,
	})
	_, err := c.Run(ctx, []string{"aaa"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
