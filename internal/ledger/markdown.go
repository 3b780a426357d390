package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

const (
	markdownHeader    = "| Commit | Status | Timestamp | Message |"
	markdownSeparator = "| --- | --- | --- | --- |"
)

var (
	prTokenRe    = regexp.MustCompile(`#(\d+)`)
	prLinkRe     = regexp.MustCompile(`\[#(\d+)\]\([^)]*\)`)
	commitLinkRe = regexp.MustCompile(`^\[([0-9a-fA-F]+)\]\([^)]*\)$`)
)

// sanitizeMarkdown escapes table delimiters inside free text so a message
// can never break the row structure.
func sanitizeMarkdown(message string) string {
	s := strings.ReplaceAll(message, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func unescapeMarkdown(cell string) string {
	return strings.ReplaceAll(cell, `\|`, "|")
}

// linkify renders PR-number tokens like #1234 as links using the configured
// pull request URL template.
func linkify(message string, links Links) string {
	if links.PullURL == "" {
		return message
	}
	return prTokenRe.ReplaceAllStringFunc(message, func(tok string) string {
		num := strings.TrimPrefix(tok, "#")
		return fmt.Sprintf("[#%s](%s)", num, fmt.Sprintf(links.PullURL, num))
	})
}

// delinkify reverses linkify so decoded messages round-trip to plain text
func delinkify(message string) string {
	return prLinkRe.ReplaceAllString(message, "#$1")
}

func commitCell(hash string, links Links) string {
	if links.CommitURL == "" {
		return hash
	}
	return fmt.Sprintf("[%s](%s)", hash, fmt.Sprintf(links.CommitURL, hash))
}

func encodeMarkdown(records []domain.CommitRecord, links Links) string {
	var b strings.Builder
	b.WriteString(markdownHeader)
	b.WriteByte('\n')
	b.WriteString(markdownSeparator)
	b.WriteByte('\n')
	for _, rec := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			commitCell(rec.Hash, links),
			rec.Status,
			rec.Timestamp,
			linkify(sanitizeMarkdown(rec.Message), links))
	}
	return b.String()
}

func decodeMarkdown(content string, links Links) []domain.CommitRecord {
	var records []domain.CommitRecord
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || line == markdownHeader || line == markdownSeparator {
			continue
		}
		cells := splitRow(line)
		if len(cells) < 3 || len(cells) > 4 {
			continue // malformed row
		}
		hash := cells[0]
		if m := commitLinkRe.FindStringSubmatch(hash); m != nil {
			hash = m[1]
		}
		rec := domain.CommitRecord{
			Hash:      hash,
			Status:    domain.Status(cells[1]),
			Timestamp: cells[2],
		}
		if len(cells) == 4 {
			rec.Message = unescapeMarkdown(delinkify(cells[3]))
		}
		if !validStatus(rec.Status) || rec.Hash == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// splitRow splits a table row on unescaped pipes and trims each cell
func splitRow(line string) []string {
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cur.String()))
	}
	// A well-formed row has empty fragments before the leading and after the
	// trailing pipe.
	if len(cells) >= 2 && cells[0] == "" {
		cells = cells[1:]
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
