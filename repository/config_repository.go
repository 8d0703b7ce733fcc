package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// ConfigRepository implements the singleton protocol configuration over
// Postgres.
type ConfigRepository struct {
	q Queryable
}

// NewConfigRepository creates a new config repository on the connection pool.
func NewConfigRepository(db *database.DB) *ConfigRepository {
	return &ConfigRepository{q: db.Pool}
}

func newConfigRepository(tx Queryable) *ConfigRepository {
	return &ConfigRepository{q: tx}
}

// Get returns the protocol config, or nil when not initialized.
func (r *ConfigRepository) Get(ctx context.Context) (*entities.ProtocolConfig, error) {
	query := `
		SELECT admin_account, treasury_account, insurance_account, created_at
		FROM protocol_config
		WHERE id = 1
	`
	var cfg entities.ProtocolConfig
	err := r.q.QueryRow(ctx, query).Scan(
		&cfg.Admin,
		&cfg.Treasury,
		&cfg.InsuranceFund,
		&cfg.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol config: %w", err)
	}
	return &cfg, nil
}

// Set stores the protocol config. Fails if one already exists.
func (r *ConfigRepository) Set(ctx context.Context, cfg *entities.ProtocolConfig) error {
	query := `
		INSERT INTO protocol_config (id, admin_account, treasury_account, insurance_account)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.q.Exec(ctx, query, cfg.Admin, cfg.Treasury, cfg.InsuranceFund)
	if err != nil {
		return fmt.Errorf("failed to set protocol config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrAlreadyInitialized
	}
	return nil
}
