package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// SecretRepository stores opaque secrets keyed by service and account.
type SecretRepository struct {
	db *sql.DB
}

// NewSecretRepository creates a new [SecretRepository] with the given database connection
func NewSecretRepository(db *sql.DB) *SecretRepository {
	return &SecretRepository{db: db}
}

// Save writes value for (service, account), replacing any previous value.
func (r *SecretRepository) Save(service, account, value string) error {
	query := `
		INSERT INTO secrets (service, account, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service, account) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, service, account, value); err != nil {
		return fmt.Errorf("failed to save secret %s/%s: %w", service, account, err)
	}
	return nil
}

// Load returns the value stored for (service, account). ok is false when nothing is stored.
func (r *SecretRepository) Load(service, account string) (value string, ok bool, err error) {
	err = r.db.QueryRow("SELECT value FROM secrets WHERE service = ? AND account = ?", service, account).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load secret %s/%s: %w", service, account, err)
	}
	return value, true, nil
}

// Delete removes every account stored under service.
func (r *SecretRepository) Delete(service string) error {
	if _, err := r.db.Exec("DELETE FROM secrets WHERE service = ?", service); err != nil {
		return fmt.Errorf("failed to delete secrets for %s: %w", service, err)
	}
	return nil
}
