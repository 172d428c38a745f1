package setting

import "context"

const (
	KeyMinProductQty   = "min_product_qty"
	KeyMinProductPrice = "min_product_price"
	KeyDefaultPageSize = "DEFAULT_PAGE_SIZE"
)

// Keys lists every setting read by the inventory module.
var Keys = []string{KeyMinProductQty, KeyMinProductPrice, KeyDefaultPageSize}

type Repository interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}
