package inventory

import (
	"context"
	"strconv"

	"github.com/stockledger/stockledger/modules/inventory/domain/setting"
	"github.com/stockledger/stockledger/modules/inventory/infrastructure/persistence"
	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
	"github.com/stockledger/stockledger/pkg/composables"
)

// seedSettings writes the configured defaults for settings that have no
// row yet. Existing values are left alone.
func seedSettings(defaults services.Settings) application.SeedFunc {
	return func(ctx context.Context, app application.Application) error {
		repo := persistence.NewSettingsRepository()
		return composables.InTx(composables.WithPool(ctx, app.DB()), func(txCtx context.Context) error {
			stored, err := repo.GetMany(txCtx, setting.Keys)
			if err != nil {
				return err
			}
			for key, value := range defaultValues(defaults) {
				if _, ok := stored[key]; ok {
					continue
				}
				if err := repo.Set(txCtx, key, value); err != nil {
					return err
				}
				app.Logger().WithField("key", key).Info("inventory: seeded setting")
			}
			return nil
		})
	}
}

func defaultValues(d services.Settings) map[string]string {
	return map[string]string{
		setting.KeyMinProductQty:   strconv.FormatInt(d.MinProductQty, 10),
		setting.KeyMinProductPrice: d.MinProductPrice,
		setting.KeyDefaultPageSize: strconv.Itoa(d.DefaultPageSize),
	}
}
