package domain

import "time"

// Status represents the processing state of a commit in a campaign
type Status string

const (
	StatusPending          Status = "pending"
	StatusSuccess          Status = "success"
	StatusSkipped          Status = "skipped"
	StatusConflictResolved Status = "conflict-resolved"
)

// Terminal returns true if the status will never change again
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// CommitRecord is one row of the campaign ledger
type CommitRecord struct {
	Hash      string
	Status    Status
	Timestamp string
	Message   string
}

// ShortHash returns the abbreviated form used in prompts and tables
func (r CommitRecord) ShortHash() string {
	if len(r.Hash) > 8 {
		return r.Hash[:8]
	}
	return r.Hash
}

// TimestampFormat is the layout used for ledger timestamps
const TimestampFormat = "2006-01-02 15:04:05"

// Now returns the current time formatted for a ledger record
func Now() string {
	return time.Now().Format(TimestampFormat)
}
