package ledger

import (
	"strings"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

const csvHeader = "commit_hash,status,timestamp,commit_message"

// sanitizeCSV keeps the row structure intact: commas inside the free-text
// message are stored as semicolons.
func sanitizeCSV(message string) string {
	s := strings.ReplaceAll(message, ",", ";")
	return strings.ReplaceAll(s, "\n", " ")
}

func encodeCSV(records []domain.CommitRecord) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for _, rec := range records {
		b.WriteString(rec.Hash)
		b.WriteByte(',')
		b.WriteString(string(rec.Status))
		b.WriteByte(',')
		b.WriteString(rec.Timestamp)
		b.WriteByte(',')
		b.WriteString(sanitizeCSV(rec.Message))
		b.WriteByte('\n')
	}
	return b.String()
}

func decodeCSV(content string) []domain.CommitRecord {
	var records []domain.CommitRecord
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == csvHeader {
			continue
		}
		fields := strings.SplitN(line, ",", 4)
		if len(fields) < 3 {
			continue // malformed row
		}
		rec := domain.CommitRecord{
			Hash:      fields[0],
			Status:    domain.Status(fields[1]),
			Timestamp: fields[2],
		}
		if len(fields) == 4 {
			rec.Message = fields[3]
		}
		if !validStatus(rec.Status) || rec.Hash == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func validStatus(s domain.Status) bool {
	switch s {
	case domain.StatusPending, domain.StatusSuccess, domain.StatusSkipped, domain.StatusConflictResolved:
		return true
	}
	return false
}
