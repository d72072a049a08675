package dto

import (
	"encoding/json"
	"time"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// IndexResponse lists the registered models.
type IndexResponse struct {
	Models any `json:"models"`
}

// FilterOptionsResponse returns the options of one filter field.
type FilterOptionsResponse struct {
	Model   string            `json:"model"`
	Field   string            `json:"field"`
	Options []metadata.Option `json:"options"`
}

// ErrorResponse mirrors the body rendered by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HistoryEntry is one audit entry as returned to clients.
type HistoryEntry struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryResponse lists the audit entries of one row.
type HistoryResponse struct {
	Model   string         `json:"model"`
	ID      string         `json:"id"`
	Entries []HistoryEntry `json:"entries"`
}

// NewHistoryResponse converts audit entries for the response body.
func NewHistoryResponse(model, id string, entries []sqldb.AuditEntry) HistoryResponse {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{
			ID:        e.ID,
			Action:    string(e.Action),
			Actor:     e.Actor,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		}
	}
	return HistoryResponse{Model: model, ID: id, Entries: out}
}
