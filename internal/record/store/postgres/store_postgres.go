package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store persists identity records in PostgreSQL.
//
// ID allocation deliberately avoids sequences: a sequence burns values on
// aborted inserts, and IDs must stay dense. Rows are never deleted (revoked
// records stay with active=false), so MAX(id)+1 inside the insert
// transaction is safe and never reuses an ID.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS identity_records (
	id              BIGINT PRIMARY KEY,
	owner           TEXT NOT NULL,
	enc_age         TEXT NOT NULL,
	enc_national_id TEXT NOT NULL,
	enc_citizenship TEXT NOT NULL,
	name_blob       BYTEA,
	country_blob    BYTEA,
	active          BOOLEAN NOT NULL,
	verified        BOOLEAN NOT NULL,
	issued_at       TIMESTAMPTZ NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS identity_records_active_owner
	ON identity_records (owner) WHERE active;
`

// EnsureSchema creates the backing table and the partial unique index that
// enforces the one-active-record-per-owner invariant at the storage layer.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure identity_records schema: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, record models.IdentityRecord) (domain.RecordID, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("begin create record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id uint64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO identity_records
			(id, owner, enc_age, enc_national_id, enc_citizenship,
			 name_blob, country_blob, active, verified, issued_at, expires_at)
		VALUES
			((SELECT COALESCE(MAX(id), 0) + 1 FROM identity_records),
			 $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		record.Owner.String(),
		string(record.EncryptedAge),
		string(record.EncryptedNationalID),
		string(record.EncryptedCitizenship),
		record.NameBlob,
		record.CountryBlob,
		record.Active,
		record.Verified,
		record.IssuedAt,
		record.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("insert identity record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create record: %w", err)
	}
	return domain.RecordID(id), nil
}

func (s *Store) Get(ctx context.Context, id domain.RecordID) (models.IdentityRecord, error) {
	var (
		record                models.IdentityRecord
		owner, age, nid, citz string
		rawID                 uint64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, enc_age, enc_national_id, enc_citizenship,
		       name_blob, country_blob, active, verified, issued_at, expires_at
		FROM identity_records WHERE id = $1
	`, uint64(id)).Scan(
		&rawID, &owner, &age, &nid, &citz,
		&record.NameBlob, &record.CountryBlob,
		&record.Active, &record.Verified, &record.IssuedAt, &record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IdentityRecord{}, sentinel.ErrNotFound
		}
		return models.IdentityRecord{}, fmt.Errorf("get identity record: %w", err)
	}
	record.ID = domain.RecordID(rawID)
	record.Owner = domain.Principal(owner)
	record.EncryptedAge = confidential.Handle(age)
	record.EncryptedNationalID = confidential.Handle(nid)
	record.EncryptedCitizenship = confidential.Handle(citz)
	return record, nil
}

func (s *Store) Deactivate(ctx context.Context, id domain.RecordID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE identity_records SET active = FALSE WHERE id = $1`, uint64(id))
	if err != nil {
		return fmt.Errorf("deactivate identity record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate identity record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) IDByOwner(ctx context.Context, owner domain.Principal) (domain.RecordID, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM identity_records WHERE owner = $1 AND active`, owner.String()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup record by owner: %w", err)
	}
	return domain.RecordID(id), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
