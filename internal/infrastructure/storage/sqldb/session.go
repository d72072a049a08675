package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adminnext/pkg/logger"
)

var tracer = otel.Tracer("adminnext/sqldb")

// ErrSessionClosed is returned by a session after Close.
var ErrSessionClosed = errors.New("sqldb: session closed")

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session is the unit of work of one request.
//
// Reads go through the open transaction if there is one, otherwise through the pool.
// The first write begins a transaction that stays open until Commit or Rollback.
// Close rolls back whatever was not committed.
type Session struct {
	db *DB

	mu     sync.Mutex
	tx     *sql.Tx
	span   trace.Span
	closed bool
}

// Dialect returns the SQL dialect of the underlying database.
func (s *Session) Dialect() Dialect {
	return s.db.dialect
}

// Builder returns a squirrel builder with the dialect's placeholder format.
func (s *Session) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(s.db.dialect.Placeholder())
}

// InTransaction reports whether a write transaction is open.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Reader returns the querier for SELECT statements.
func (s *Session) Reader() Querier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db.DB
}

// Writer returns the open transaction, beginning one if needed.
func (s *Session) Writer(ctx context.Context) (Querier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}

	_, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("db.system", s.db.dialect.Name())))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		span.End()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	s.tx = tx
	s.span = span
	return tx, nil
}

// Commit commits the open transaction. Without one it does nothing.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}

	err := s.tx.Commit()
	s.finish(err)
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the open transaction. Without one it does nothing.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollback(ctx)
}

func (s *Session) rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.finish(err)
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error(ctx, "rollback failed", "error", err)
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

func (s *Session) finish(err error) {
	if s.span != nil {
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		s.span.End()
	}
	s.tx = nil
	s.span = nil
}

// Close releases the session. An uncommitted transaction is rolled back.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Background context: the request context may already be cancelled.
	return s.rollback(context.Background())
}

// RunInTransaction executes fn and commits if it returns nil, rolling back otherwise.
func (s *Session) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := s.Writer(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := s.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	return s.Commit(ctx)
}
