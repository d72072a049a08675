package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	appctx "adminnext/internal/core/context"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditTable is the name of the audit log table.
const AuditTable = "admin_audit"

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                string          `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            AuditAction     `db:"action"`
	Actor             string          `db:"actor"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditSchema returns the DDL creating the audit table for the dialect.
func AuditSchema(d Dialect) string {
	blob, text := "BLOB", "TEXT"
	switch d.Name() {
	case DialectPostgres:
		blob = "BYTEA"
	case DialectMySQL:
		blob, text = "LONGBLOB", "LONGTEXT"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY,
	entity_type VARCHAR(100) NOT NULL,
	entity_id VARCHAR(100) NOT NULL,
	action VARCHAR(20) NOT NULL,
	actor VARCHAR(255) NOT NULL,
	changes %s,
	changes_compressed %s,
	compression_algo VARCHAR(10) NOT NULL,
	created_at TIMESTAMP NOT NULL
)`, AuditTable, text, blob)
}

// AuditService writes audit entries through the caller's session,
// so an entry commits or rolls back together with the change it describes.
type AuditService struct {
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
// Changes larger than compressThreshold bytes are stored zstd-compressed; 0 means 10KB.
func NewAuditService(compressThreshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if compressThreshold <= 0 {
		compressThreshold = 10 * 1024
	}

	return &AuditService{
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// Log records an audit entry inside the session's transaction.
func (s *AuditService) Log(ctx context.Context, sess *Session, entry AuditEntry) error {
	if entry.Actor == "" {
		entry.Actor = appctx.GetActorName(ctx)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}

	var changes any
	if entry.Changes != nil {
		changes = string(entry.Changes)
	}

	q := sess.Builder().
		Insert(AuditTable).
		SetMap(map[string]any{
			"id":                 entry.ID,
			"entity_type":        entry.EntityType,
			"entity_id":          entry.EntityID,
			"action":             string(entry.Action),
			"actor":              entry.Actor,
			"changes":            changes,
			"changes_compressed": entry.ChangesCompressed,
			"compression_algo":   string(entry.CompressionAlgo),
			"created_at":         entry.CreatedAt,
		})

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	w, err := sess.Writer(ctx)
	if err != nil {
		return err
	}
	if _, err := w.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// LogChange is a convenience method for logging entity changes.
func (s *AuditService) LogChange(
	ctx context.Context,
	sess *Session,
	entityType string,
	entityID any,
	action AuditAction,
	changes map[string]any,
) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	return s.Log(ctx, sess, AuditEntry{
		EntityType: entityType,
		EntityID:   fmt.Sprint(entityID),
		Action:     action,
		Changes:    changesJSON,
	})
}

// History retrieves audit history for an entity, newest first.
func (s *AuditService) History(
	ctx context.Context,
	sess *Session,
	entityType string,
	entityID any,
	limit uint64,
) ([]AuditEntry, error) {
	q := sess.Builder().
		Select("id", "entity_type", "entity_id", "action", "actor",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From(AuditTable).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", fmt.Sprint(entityID)).
		OrderBy("created_at DESC").
		Limit(limit)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := sess.Reader().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e         AuditEntry
			changes   []byte
			createdAt any
		)
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor,
			&changes, &e.ChangesCompressed, &e.CompressionAlgo, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Changes = changes
		e.CreatedAt = toTime(createdAt)

		if e.CompressionAlgo == CompressionZstd && len(e.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
			e.ChangesCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// toTime accepts the timestamp representations returned by the supported drivers.
func toTime(v any) time.Time {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999 -0700 MST", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Diff calculates the difference between old and new row states.
// Only keys present in newState are compared; updates are partial.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	return changes
}

func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
