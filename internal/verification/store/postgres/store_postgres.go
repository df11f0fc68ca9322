package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store persists verification requests in PostgreSQL. Indices are scoped per
// record and assigned densely at append time; rows are never deleted, so an
// index handed to a caller stays valid for the record's lifetime.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS verification_requests (
	record_id         BIGINT NOT NULL,
	idx               INTEGER NOT NULL,
	requester         TEXT NOT NULL,
	purpose           TEXT NOT NULL,
	age_check         BOOLEAN NOT NULL,
	nationality_check BOOLEAN NOT NULL,
	identity_check    BOOLEAN NOT NULL,
	approved          BOOLEAN NOT NULL,
	processed         BOOLEAN NOT NULL,
	requested_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (record_id, idx)
);
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure verification_requests schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, req models.VerificationRequest) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("begin append request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var idx int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO verification_requests
			(record_id, idx, requester, purpose,
			 age_check, nationality_check, identity_check,
			 approved, processed, requested_at)
		VALUES
			($1,
			 (SELECT COALESCE(MAX(idx), -1) + 1 FROM verification_requests WHERE record_id = $1),
			 $2, $3, $4, $5, $6, FALSE, FALSE, $7)
		RETURNING idx
	`,
		uint64(req.RecordID),
		req.Requester.String(),
		req.Purpose,
		req.Checks.Age,
		req.Checks.Nationality,
		req.Checks.Identity,
		req.RequestedAt,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("insert verification request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append request: %w", err)
	}
	return idx, nil
}

func (s *Store) Get(ctx context.Context, recordID domain.RecordID, index int) (models.VerificationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT record_id, idx, requester, purpose,
		       age_check, nationality_check, identity_check,
		       approved, processed, requested_at
		FROM verification_requests WHERE record_id = $1 AND idx = $2
	`, uint64(recordID), index)
	return scanRequest(row)
}

func (s *Store) Count(ctx context.Context, recordID domain.RecordID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_requests WHERE record_id = $1`,
		uint64(recordID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count verification requests: %w", err)
	}
	return n, nil
}

func (s *Store) MarkProcessed(ctx context.Context, recordID domain.RecordID, index int, approved bool) (models.VerificationRequest, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.VerificationRequest{}, fmt.Errorf("begin process request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var processed bool
	err = tx.QueryRowContext(ctx, `
		SELECT processed FROM verification_requests
		WHERE record_id = $1 AND idx = $2 FOR UPDATE
	`, uint64(recordID), index).Scan(&processed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VerificationRequest{}, sentinel.ErrNotFound
		}
		return models.VerificationRequest{}, fmt.Errorf("lock verification request: %w", err)
	}
	if processed {
		return models.VerificationRequest{}, sentinel.ErrAlreadyUsed
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE verification_requests
		SET processed = TRUE, approved = $3
		WHERE record_id = $1 AND idx = $2
		RETURNING record_id, idx, requester, purpose,
		          age_check, nationality_check, identity_check,
		          approved, processed, requested_at
	`, uint64(recordID), index, approved)
	req, err := scanRequest(row)
	if err != nil {
		return models.VerificationRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.VerificationRequest{}, fmt.Errorf("commit process request: %w", err)
	}
	return req, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.VerificationRequest, error) {
	var (
		req       models.VerificationRequest
		rawID     uint64
		requester string
	)
	err := row.Scan(
		&rawID, &req.Index, &requester, &req.Purpose,
		&req.Checks.Age, &req.Checks.Nationality, &req.Checks.Identity,
		&req.Approved, &req.Processed, &req.RequestedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VerificationRequest{}, sentinel.ErrNotFound
		}
		return models.VerificationRequest{}, fmt.Errorf("scan verification request: %w", err)
	}
	req.RecordID = domain.RecordID(rawID)
	req.Requester = domain.Principal(requester)
	return req, nil
}
