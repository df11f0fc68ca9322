package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/sentinel"
)

// Store persists registry roles in PostgreSQL. The authority lives in a
// single-row table; verifiers are a plain membership table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS registry_authority (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	principal TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS authorized_verifiers (
	principal TEXT PRIMARY KEY
);
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure role schema: %w", err)
	}
	return nil
}

func (s *Store) Authority(ctx context.Context) (domain.Principal, error) {
	var principal string
	err := s.db.QueryRowContext(ctx,
		`SELECT principal FROM registry_authority WHERE singleton`).Scan(&principal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NoPrincipal, sentinel.ErrNotFound
		}
		return domain.NoPrincipal, fmt.Errorf("get authority: %w", err)
	}
	return domain.Principal(principal), nil
}

func (s *Store) SetAuthority(ctx context.Context, p domain.Principal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_authority (singleton, principal) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET principal = EXCLUDED.principal
	`, p.String())
	if err != nil {
		return fmt.Errorf("set authority: %w", err)
	}
	return nil
}

func (s *Store) IsVerifier(ctx context.Context, p domain.Principal) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM authorized_verifiers WHERE principal = $1)`,
		p.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check verifier: %w", err)
	}
	return exists, nil
}

func (s *Store) AddVerifier(ctx context.Context, p domain.Principal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authorized_verifiers (principal) VALUES ($1)
		ON CONFLICT (principal) DO NOTHING
	`, p.String())
	if err != nil {
		return fmt.Errorf("add verifier: %w", err)
	}
	return nil
}

func (s *Store) RemoveVerifier(ctx context.Context, p domain.Principal) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM authorized_verifiers WHERE principal = $1`, p.String())
	if err != nil {
		return fmt.Errorf("remove verifier: %w", err)
	}
	return nil
}
