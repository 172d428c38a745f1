package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/modules/inventory/domain/setting"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/serrors"
)

// ConfigProvider supplies the business rules and paging defaults read on
// every call.
type ConfigProvider interface {
	Rules(ctx context.Context) (product.Rules, error)
	PageSize(ctx context.Context) (int, error)
}

type Settings struct {
	MinProductQty   int64  `json:"minProductQty"`
	MinProductPrice string `json:"minProductPrice"`
	DefaultPageSize int    `json:"defaultPageSize"`
}

type SettingsService struct {
	repo     setting.Repository
	defaults Settings
}

func NewSettingsService(repo setting.Repository, defaults Settings) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

// Get merges stored settings over the configured defaults. Unparseable
// stored values are ignored.
func (s *SettingsService) Get(ctx context.Context) (Settings, error) {
	out := s.defaults
	stored, err := s.repo.GetMany(ctx, setting.Keys)
	if err != nil {
		return out, mapStoreError(err)
	}
	if v, ok := stored[setting.KeyMinProductQty]; ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			out.MinProductQty = n
		}
	}
	if v, ok := stored[setting.KeyMinProductPrice]; ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil && !d.IsNegative() {
			out.MinProductPrice = d.StringFixed(2)
		}
	}
	if v, ok := stored[setting.KeyDefaultPageSize]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			out.DefaultPageSize = n
		}
	}
	return out, nil
}

func (s *SettingsService) Rules(ctx context.Context) (product.Rules, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return product.Rules{}, err
	}
	price, err := decimal.NewFromString(cur.MinProductPrice)
	if err != nil {
		return product.Rules{}, serrors.NewError("INVALID_MIN_PRICE", "configured minimum price is invalid", "").WithCause(err)
	}
	return product.Rules{MinQuantity: cur.MinProductQty, MinUnitPrice: price}, nil
}

func (s *SettingsService) PageSize(ctx context.Context) (int, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cur.DefaultPageSize, nil
}

// Set stores one setting after checking the key and value format.
func (s *SettingsService) Set(ctx context.Context, a actor.Actor, key, value string) error {
	if !a.IsAdmin() {
		return ErrAdminRequired
	}
	value = strings.TrimSpace(value)
	invalid := func(msg string) error {
		return serrors.Validation("INVALID_SETTING", msg, map[string]string{key: msg})
	}
	switch key {
	case setting.KeyMinProductQty:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return invalid("must be a non-negative whole number")
		}
	case setting.KeyMinProductPrice:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return invalid("must be a non-negative number")
		}
		value = d.StringFixed(2)
	case setting.KeyDefaultPageSize:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return invalid("must be a positive whole number")
		}
	default:
		return serrors.Validation("UNKNOWN_SETTING", "unknown setting "+key, nil)
	}
	return mapStoreError(s.repo.Set(ctx, key, value))
}
