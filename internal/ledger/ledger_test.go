package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

var testLinks = Links{
	CommitURL: "https://example.com/repo/commit/%s",
	PullURL:   "https://example.com/repo/pull/%s",
}

func seedThree(t *testing.T, path string, format Format) *Ledger {
	t.Helper()
	l := New(path, format, testLinks)
	err := l.Seed([]domain.CommitRecord{
		{Hash: "aaaa111", Message: "first change"},
		{Hash: "bbbb222", Message: "second change"},
		{Hash: "cccc333", Message: "third change"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoad_MissingFile(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "nope.csv"), FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if l != nil {
		t.Errorf("Load = %v, want nil for missing file", l)
	}
}

func TestSeedAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	seedThree(t, path, FormatCSV)

	l, err := Load(path, FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
	for _, rec := range l.Records() {
		if rec.Status != domain.StatusPending {
			t.Errorf("%s status = %s, want pending", rec.Hash, rec.Status)
		}
	}
}

func TestResumePoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	l := seedThree(t, path, FormatCSV)

	if got := l.ResumePoint(); got != "" {
		t.Errorf("ResumePoint = %q, want empty for all-pending ledger", got)
	}

	if err := l.Upsert("aaaa111", domain.StatusSuccess, domain.Now(), "first change"); err != nil {
		t.Fatal(err)
	}
	if err := l.Upsert("bbbb222", domain.StatusSkipped, domain.Now(), "second change"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path, FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.ResumePoint(); got != "bbbb222" {
		t.Errorf("ResumePoint = %q, want bbbb222", got)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	l := seedThree(t, path, FormatCSV)

	for i := 0; i < 2; i++ {
		if err := l.Upsert("bbbb222", domain.StatusSuccess, "2026-01-02 03:04:05", "second change"); err != nil {
			t.Fatal(err)
		}
	}

	reloaded, err := Load(path, FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("Len = %d, want 3 after repeated upsert", reloaded.Len())
	}

	// Position preserved: bbbb222 is still the second record.
	recs := reloaded.Records()
	if recs[1].Hash != "bbbb222" || recs[1].Status != domain.StatusSuccess {
		t.Errorf("records[1] = %+v, want updated bbbb222", recs[1])
	}
}

func TestUpsert_AppendsUnknownHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	l := New(path, FormatCSV, testLinks)

	if err := l.Upsert("dddd444", domain.StatusSuccess, domain.Now(), "late addition"); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestCSV_CommaInMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	l := New(path, FormatCSV, testLinks)

	msg := "Fix parser, lexer, and printer"
	if err := l.Upsert("aaaa111", domain.StatusSuccess, domain.Now(), msg); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path, FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("Len = %d, want 1: commas corrupted row structure", reloaded.Len())
	}
	rec, _ := reloaded.Get("aaaa111")
	if rec.Message != "Fix parser; lexer; and printer" {
		t.Errorf("Message = %q", rec.Message)
	}
}

func TestCSV_SkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	content := csvHeader + "\n" +
		"garbage line without delimiters\n" +
		"aaaa111,success,2026-01-02 03:04:05,good row\n" +
		"bbbb222,not-a-status,2026-01-02 03:04:05,bad status\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path, FormatCSV, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (malformed rows skipped)", l.Len())
	}
	if got := l.ResumePoint(); got != "aaaa111" {
		t.Errorf("ResumePoint = %q, want aaaa111", got)
	}
}

func TestMarkdown_PRLinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.md")
	l := New(path, FormatMarkdown, testLinks)

	msg := "Backport validator fix (#1234) to release branch"
	if err := l.Upsert("aaaa111", domain.StatusSuccess, domain.Now(), msg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[#1234](https://example.com/repo/pull/1234)") {
		t.Errorf("rendered file missing PR link:\n%s", data)
	}
	if !strings.Contains(string(data), "[aaaa111](https://example.com/repo/commit/aaaa111)") {
		t.Errorf("rendered file missing commit link:\n%s", data)
	}

	reloaded, err := Load(path, FormatMarkdown, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := reloaded.Get("aaaa111")
	if !ok {
		t.Fatal("record not found after reload")
	}
	if rec.Message != msg {
		t.Errorf("Message = %q, want %q", rec.Message, msg)
	}
}

func TestMarkdown_PipeInMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.md")
	l := New(path, FormatMarkdown, testLinks)

	msg := "Support a | b alternation in matcher"
	if err := l.Upsert("aaaa111", domain.StatusSkipped, domain.Now(), msg); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path, FormatMarkdown, testLinks)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("Len = %d, want 1: pipe corrupted row structure", reloaded.Len())
	}
	rec, _ := reloaded.Get("aaaa111")
	if rec.Message != msg {
		t.Errorf("Message = %q, want %q", rec.Message, msg)
	}
}

func TestFlush_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picks.csv")
	l := seedThree(t, path, FormatCSV)
	if err := l.Upsert("aaaa111", domain.StatusSuccess, domain.Now(), "first change"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "picks.csv" {
		t.Errorf("unexpected files in ledger dir: %v", entries)
	}
}

func TestRender_IsMarkdownProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picks.csv")
	l := seedThree(t, path, FormatCSV)

	out := l.Render()
	if !strings.HasPrefix(out, markdownHeader) {
		t.Errorf("Render output missing header:\n%s", out)
	}
	if !strings.Contains(out, "| pending |") {
		t.Errorf("Render output missing rows:\n%s", out)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		want Format
	}{
		{"picks.csv", FormatCSV},
		{"picks.md", FormatMarkdown},
		{"picks.markdown", FormatMarkdown},
		{"picks", FormatCSV},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.path); got != tc.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}
