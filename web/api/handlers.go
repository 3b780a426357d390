package api

import (
	"net/http"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
	"github.com/hochfrequenz/cherry-orch/internal/ledger"
)

// StatusResponse is the API response for overall campaign progress
type StatusResponse struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Success          int `json:"success"`
	Skipped          int `json:"skipped"`
	ConflictResolved int `json:"conflict_resolved"`
}

// RecordResponse is the API response for one ledger record
type RecordResponse struct {
	Hash      string `json:"hash"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Snapshot is the websocket payload: progress counts plus all records
type Snapshot struct {
	Status  StatusResponse   `json:"status"`
	Records []RecordResponse `json:"records"`
}

func makeSnapshot(led *ledger.Ledger) Snapshot {
	var snap Snapshot
	snap.Records = []RecordResponse{}
	if led == nil {
		return snap
	}

	counts := led.Counts()
	snap.Status = StatusResponse{
		Total:            led.Len(),
		Pending:          counts[domain.StatusPending],
		Success:          counts[domain.StatusSuccess],
		Skipped:          counts[domain.StatusSkipped],
		ConflictResolved: counts[domain.StatusConflictResolved],
	}
	for _, rec := range led.Records() {
		snap.Records = append(snap.Records, RecordResponse{
			Hash:      rec.Hash,
			Status:    string(rec.Status),
			Timestamp: rec.Timestamp,
			Message:   rec.Message,
		})
	}
	return snap
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.snapshot()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, snap.Status)
	}
}

func (s *Server) recordsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.snapshot()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, snap.Records)
	}
}
