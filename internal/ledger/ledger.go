// Package ledger persists per-commit cherry-pick progress to an
// operator-owned file so an interrupted campaign can be resumed. The file is
// the source of truth; rendered output is a projection over it.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

// Format selects the on-disk encoding of the ledger file
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// DetectFormat picks a format from the file extension, defaulting to CSV
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatCSV
	}
}

// Links holds the URL templates used by the Markdown encoding. Each template
// takes one %s verb: the full commit hash or the PR number.
type Links struct {
	CommitURL string
	PullURL   string
}

// Ledger is the ordered set of commit records for one campaign, backed by a
// single file. At most one record exists per hash; updates preserve the
// record's position.
type Ledger struct {
	path    string
	format  Format
	links   Links
	records []domain.CommitRecord
	index   map[string]int
}

// New returns an empty ledger backed by path. Nothing is written until the
// first Seed or Upsert.
func New(path string, format Format, links Links) *Ledger {
	return &Ledger{
		path:   path,
		format: format,
		links:  links,
		index:  make(map[string]int),
	}
}

// Load reads an existing ledger file. A missing file returns (nil, nil) so
// the caller can distinguish "fresh campaign" from a read failure. Malformed
// rows are skipped, not fatal.
func Load(path string, format Format, links Links) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	l := New(path, format, links)
	var records []domain.CommitRecord
	switch format {
	case FormatMarkdown:
		records = decodeMarkdown(string(data), links)
	default:
		records = decodeCSV(string(data))
	}
	for _, rec := range records {
		if _, dup := l.index[rec.Hash]; dup {
			// Last write wins for duplicate hashes.
			l.records[l.index[rec.Hash]] = rec
			continue
		}
		l.index[rec.Hash] = len(l.records)
		l.records = append(l.records, rec)
	}
	return l, nil
}

// Path returns the backing file path
func (l *Ledger) Path() string {
	return l.path
}

// Records returns a copy of the records in file order
func (l *Ledger) Records() []domain.CommitRecord {
	out := make([]domain.CommitRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Get returns the record for hash, if present
func (l *Ledger) Get(hash string) (domain.CommitRecord, bool) {
	i, ok := l.index[hash]
	if !ok {
		return domain.CommitRecord{}, false
	}
	return l.records[i], true
}

// Len returns the number of records
func (l *Ledger) Len() int {
	return len(l.records)
}

// ResumePoint returns the hash of the last record in file order whose status
// is terminal, or "" when every record is still pending. Records are
// appended in range order, so this is where a prior run stopped.
func (l *Ledger) ResumePoint() string {
	last := ""
	for _, rec := range l.records {
		if rec.Status.Terminal() {
			last = rec.Hash
		}
	}
	return last
}

// Seed writes one pending record per commit. Only used when starting a
// fresh campaign; resuming runs against the reloaded file instead.
func (l *Ledger) Seed(records []domain.CommitRecord) error {
	for _, rec := range records {
		if _, exists := l.index[rec.Hash]; exists {
			continue
		}
		rec.Status = domain.StatusPending
		l.index[rec.Hash] = len(l.records)
		l.records = append(l.records, rec)
	}
	return l.flush()
}

// Upsert records the outcome for one commit. An existing record is replaced
// in place, preserving its position; an unknown hash is appended. The
// backing file is rewritten atomically on every call.
func (l *Ledger) Upsert(hash string, status domain.Status, timestamp, message string) error {
	rec := domain.CommitRecord{Hash: hash, Status: status, Timestamp: timestamp, Message: message}
	if i, ok := l.index[hash]; ok {
		l.records[i] = rec
	} else {
		l.index[hash] = len(l.records)
		l.records = append(l.records, rec)
	}
	return l.flush()
}

// Counts tallies records by status
func (l *Ledger) Counts() map[domain.Status]int {
	counts := make(map[domain.Status]int)
	for _, rec := range l.records {
		counts[rec.Status]++
	}
	return counts
}

// Render produces the Markdown projection of the ledger, regardless of the
// backing format
func (l *Ledger) Render() string {
	return encodeMarkdown(l.records, l.links)
}

// flush rewrites the backing file through a temp file in the same directory
// and renames it over the old one, so a reader between invocations never
// sees a partial write.
func (l *Ledger) flush() error {
	var content string
	switch l.format {
	case FormatMarkdown:
		content = encodeMarkdown(l.records, l.links)
	default:
		content = encodeCSV(l.records)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}
