package admin

import (
	"context"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// DefaultHistoryLimit and MaxHistoryLimit bound the entries returned by History.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryReader is implemented by auditors that can read their entries back.
type HistoryReader interface {
	History(ctx context.Context, sess *sqldb.Session, entityType string, entityID any, limit uint64) ([]sqldb.AuditEntry, error)
}

// Schema returns the descriptor of a registered model.
func (s *Service) Schema(model string) (*metadata.Table, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}
	return m.Table, nil
}

// History returns the audit entries of one row, newest first.
// It is empty when auditing is disabled.
func (s *Service) History(ctx context.Context, sess *sqldb.Session, model string, id any, limit int) ([]sqldb.AuditEntry, error) {
	m, err := s.registry.lookup(model)
	if err != nil {
		return nil, err
	}

	row, err := s.generator(m, sess).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, ok := s.auditor.(HistoryReader)
	if !ok {
		return []sqldb.AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	entries, err := reader.History(ctx, sess, m.Table.Name, row[m.Table.PrimaryKeyName()], uint64(limit))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []sqldb.AuditEntry{}
	}
	return entries, nil
}
