package store

import (
	"context"
	"database/sql"
	"time"

	"renos/internal/logger"
	"renos/pkg/errors"
	"renos/pkg/metrics"
)

const serviceName = "pipeline-service"

// PostgresStore persists leads, quotes and customer history. It backs
// the duplicate guard's lookups.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log}
}

func (s *PostgresStore) RecordLead(ctx context.Context, rec *LeadRecord) error {
	query := `
		INSERT INTO leads (id, message_id, source, email, name, task_type, square_meters, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (message_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.MessageID, rec.Source, rec.Email, rec.Name,
		rec.TaskType, rec.SquareMeters, rec.ReceivedAt, time.Now())
	if err != nil {
		metrics.IncDatabaseQuery(serviceName, "postgres", "insert_lead", "error")
		return errors.Wrap(err, errors.ErrInternal)
	}

	metrics.IncDatabaseQuery(serviceName, "postgres", "insert_lead", "success")
	return nil
}

func (s *PostgresStore) RecordQuoteSent(ctx context.Context, rec *QuoteRecord) error {
	query := `
		INSERT INTO quotes (id, lead_id, email, source, task_type, thread_ref, total, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.LeadID, rec.Email, rec.Source, rec.TaskType,
		rec.ThreadRef, rec.Total, rec.SentAt, time.Now())
	if err != nil {
		metrics.IncDatabaseQuery(serviceName, "postgres", "insert_quote", "error")
		return errors.Wrap(err, errors.ErrInternal)
	}

	metrics.IncDatabaseQuery(serviceName, "postgres", "insert_quote", "success")
	return nil
}

// LastQuote returns the newest quote sent to an address, or nil when
// the address has never been quoted.
func (s *PostgresStore) LastQuote(ctx context.Context, email string) (*QuoteRecord, error) {
	query := `
		SELECT id, lead_id, email, source, task_type, thread_ref, total, sent_at, created_at
		FROM quotes
		WHERE lower(email) = lower($1)
		ORDER BY sent_at DESC
		LIMIT 1`

	var rec QuoteRecord
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&rec.ID, &rec.LeadID, &rec.Email, &rec.Source, &rec.TaskType,
		&rec.ThreadRef, &rec.Total, &rec.SentAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		metrics.IncDatabaseQuery(serviceName, "postgres", "last_quote", "success")
		return nil, nil
	}
	if err != nil {
		metrics.IncDatabaseQuery(serviceName, "postgres", "last_quote", "error")
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	metrics.IncDatabaseQuery(serviceName, "postgres", "last_quote", "success")
	return &rec, nil
}

// CustomerByEmail resolves an address to a known customer, or nil.
func (s *PostgresStore) CustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error) {
	query := `
		SELECT id, email, name, phone, booking_count, last_booking_at, created_at
		FROM customers
		WHERE lower(email) = lower($1)`

	var rec CustomerRecord
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&rec.ID, &rec.Email, &rec.Name, &rec.Phone,
		&rec.BookingCount, &rec.LastBookingAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		metrics.IncDatabaseQuery(serviceName, "postgres", "customer_by_email", "success")
		return nil, nil
	}
	if err != nil {
		metrics.IncDatabaseQuery(serviceName, "postgres", "customer_by_email", "error")
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	metrics.IncDatabaseQuery(serviceName, "postgres", "customer_by_email", "success")
	return &rec, nil
}
