package campaign

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
campaigns:
  - name: release-42-backports
    repo: /srv/repos/product
    start: v42.0.0
    end: main
    ledger: ~/ledgers/release-42.md
    format: markdown
    unattended: true
    cron: "0 2 * * *"
  - name: hotfix-once
    start: v42.1.0
    end: hotfix/42.1
    ledger: hotfix.csv
`)

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Campaigns) != 2 {
		t.Fatalf("campaigns = %d, want 2", len(f.Campaigns))
	}
	if f.Campaigns[0].Name != "release-42-backports" || !f.Campaigns[0].Unattended {
		t.Errorf("first campaign = %+v", f.Campaigns[0])
	}

	scheduled := f.Scheduled()
	if len(scheduled) != 1 || scheduled[0].Name != "release-42-backports" {
		t.Errorf("Scheduled = %v", scheduled)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		c       Campaign
		wantErr bool
	}{
		{"valid", Campaign{Name: "a", Start: "x", End: "y", Ledger: "l.csv"}, false},
		{"missing name", Campaign{Start: "x", End: "y", Ledger: "l.csv"}, true},
		{"missing refs", Campaign{Name: "a", Ledger: "l.csv"}, true},
		{"missing ledger", Campaign{Name: "a", Start: "x", End: "y"}, true},
		{"bad cron", Campaign{Name: "a", Start: "x", End: "y", Ledger: "l", Cron: "bogus", Unattended: true}, true},
		{"scheduled but interactive", Campaign{Name: "a", Start: "x", End: "y", Ledger: "l", Cron: "* * * * *"}, true},
	}
	for _, tc := range cases {
		err := tc.c.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestNextRun(t *testing.T) {
	c := Campaign{Cron: "0 2 * * *"}
	after := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next, err := c.NextRun(after)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "campaigns: []\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for file with no campaigns")
	}
}
