package services

import (
	"context"
	"math"
	"strings"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/httpapi"
	"github.com/stockledger/stockledger/pkg/serrors"
)

type ProductQuery struct {
	Search string
	Sort   string
	Order  string
	Page   int
	Limit  int
}

type RequestQuery struct {
	// Status is all, pending, approved or rejected. Empty means all.
	Status string
	Search string
	Page   int
	Limit  int
}

type ActivityQuery struct {
	ActorID  *int64
	EntityID *int64
	Type     string
	Status   string
	Page     int
	Limit    int
}

// pager turns page/limit input into a bounded limit and offset.
type pager struct {
	config  ConfigProvider
	maxSize int
}

func (p pager) normalize(ctx context.Context, page, limit int) (int, int, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		size, err := p.config.PageSize(ctx)
		if err != nil {
			return 0, 0, 0, err
		}
		limit = size
	}
	if p.maxSize > 0 && limit > p.maxSize {
		limit = p.maxSize
	}
	// keep (page-1)*limit inside int
	if maxPage := math.MaxInt / max(limit, 1); page > maxPage {
		page = maxPage
	}
	return page, limit, (page - 1) * limit, nil
}

type QueryService struct {
	products product.Repository
	requests changerequest.Repository
	activity activity.Repository
	pager    pager
}

func NewQueryService(
	products product.Repository,
	requests changerequest.Repository,
	activityRepo activity.Repository,
	config ConfigProvider,
	maxPageSize int,
) *QueryService {
	return &QueryService{
		products: products,
		requests: requests,
		activity: activityRepo,
		pager:    pager{config: config, maxSize: maxPageSize},
	}
}

// ListProducts returns active products decorated with their most relevant
// activity entry.
func (s *QueryService) ListProducts(ctx context.Context, q ProductQuery) (*httpapi.Page[*product.WithStatus], error) {
	page, limit, offset, err := s.pager.normalize(ctx, q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	params := &product.FindParams{
		Search:     strings.TrimSpace(q.Search),
		SortBy:     product.ParseSortField(q.Sort),
		Descending: strings.EqualFold(q.Order, "desc"),
		Limit:      limit,
		Offset:     offset,
	}
	items, err := s.products.ListWithStatus(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	total, err := s.products.Count(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &httpapi.Page[*product.WithStatus]{Items: nonNil(items), Total: total, Page: page, Limit: limit}, nil
}

func (s *QueryService) ListRequests(ctx context.Context, a actor.Actor, q RequestQuery) (*httpapi.Page[*changerequest.PendingRequest], error) {
	status, err := parseRequestStatus(q.Status)
	if err != nil {
		return nil, err
	}
	page, limit, offset, err := s.pager.normalize(ctx, q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	params := &changerequest.FindParams{
		Status: status,
		Search: strings.TrimSpace(q.Search),
		Limit:  limit,
		Offset: offset,
	}
	if !a.IsAdmin() {
		id := a.ID
		params.RequestedBy = &id
	}
	items, err := s.requests.List(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	total, err := s.requests.Count(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &httpapi.Page[*changerequest.PendingRequest]{Items: nonNil(items), Total: total, Page: page, Limit: limit}, nil
}

// ListActivity shows editors the entries they wrote or that shadow their
// own requests. Admins see everything and may filter by author and type.
func (s *QueryService) ListActivity(ctx context.Context, a actor.Actor, q ActivityQuery) (*httpapi.Page[*activity.Entry], error) {
	page, limit, offset, err := s.pager.normalize(ctx, q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	params := &activity.FindParams{
		EntityID: q.EntityID,
		Status:   activity.Status(strings.TrimSpace(q.Status)),
		Limit:    limit,
		Offset:   offset,
	}
	if a.IsAdmin() {
		params.CreatedBy = q.ActorID
		params.EntityType = strings.TrimSpace(q.Type)
	} else {
		id := a.ID
		params.VisibleTo = &id
	}
	items, err := s.activity.List(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	total, err := s.activity.Count(ctx, params)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &httpapi.Page[*activity.Entry]{Items: nonNil(items), Total: total, Page: page, Limit: limit}, nil
}

func parseRequestStatus(s string) (changerequest.Status, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "all":
		return "", nil
	case string(changerequest.StatusPending), string(changerequest.StatusApproved), string(changerequest.StatusRejected):
		return changerequest.Status(v), nil
	default:
		return "", serrors.Validation("INVALID_STATUS", "status must be all, pending, approved or rejected",
			map[string]string{"status": "invalid"})
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
