package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"

	"github.com/stockledger/stockledger/modules/inventory/domain/setting"
	"github.com/stockledger/stockledger/pkg/composables"
)

type SettingsRepository struct{}

func NewSettingsRepository() setting.Repository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT key, value FROM system_settings WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, gerrors.Wrap(err, "get settings")
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO system_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return gerrors.Wrap(err, "set setting")
	}
	return nil
}
