//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// binaryPath returns the path to the built CLI binary, building it if needed
func binaryPath(t *testing.T) string {
	t.Helper()
	paths := []string{
		"../cherry-orch",
		"./cherry-orch",
		filepath.Join(os.Getenv("GOPATH"), "bin", "cherry-orch"),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", "../cherry-orch", "../cmd/cherry-orch")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}

	abs, _ := filepath.Abs("../cherry-orch")
	return abs
}

// gitRun executes a git command inside dir
func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %s", args, out)
	}
	return string(out)
}

// setupRepoWithBranch creates a repo whose feature branch carries extra
// commits to pick back onto main. Returns the repo dir.
func setupRepoWithBranch(t *testing.T, commits int) string {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "-b", "main")
	gitRun(t, dir, "config", "user.email", "test@test.com")
	gitRun(t, dir, "config", "user.name", "Test")

	if err := os.WriteFile(filepath.Join(dir, "base.txt"), []byte("base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "base commit")

	gitRun(t, dir, "checkout", "-b", "feature")
	for i := 0; i < commits; i++ {
		name := filepath.Join(dir, "file"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("content\n"), 0644); err != nil {
			t.Fatal(err)
		}
		gitRun(t, dir, "add", ".")
		gitRun(t, dir, "commit", "-m", "feature change "+string(rune('a'+i)))
	}
	gitRun(t, dir, "checkout", "main")
	return dir
}

// createTestConfig writes a minimal config pointing at temp locations
func createTestConfig(t *testing.T, repoDir, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[git]
repo_dir = "` + repoDir + `"

[history]
database_path = "` + dbPath + `"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
