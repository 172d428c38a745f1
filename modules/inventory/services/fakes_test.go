package services

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockledger/stockledger/modules/inventory/domain/activity"
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/fieldschema"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/modules/inventory/domain/setting"
)

// memDB holds every table in memory. inTx and inSavepoint snapshot the
// tables and restore them when fn fails.
type memDB struct {
	mu sync.Mutex

	products map[int64]product.Product
	requests map[int64]changerequest.PendingRequest
	entries  map[int64]activity.Entry
	settings map[string]string
	logs     []fieldschema.Log
	form     *fieldschema.Form
	seq      int64
	now      time.Time

	// failure injection
	failProductUpdate  error
	failProductCreate  error
	failActivityCreate error
	failFormUpsert     error
	forcedUnique       int
}

type memTables struct {
	products map[int64]product.Product
	requests map[int64]changerequest.PendingRequest
	entries  map[int64]activity.Entry
	settings map[string]string
	logs     []fieldschema.Log
	seq      int64
}

func newMemDB() *memDB {
	return &memDB{
		products: map[int64]product.Product{},
		requests: map[int64]changerequest.PendingRequest{},
		entries:  map[int64]activity.Entry{},
		settings: map[string]string{},
		now:      time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func (db *memDB) snapshot() memTables {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memTables{
		products: maps.Clone(db.products),
		requests: maps.Clone(db.requests),
		entries:  maps.Clone(db.entries),
		settings: maps.Clone(db.settings),
		logs:     slices.Clone(db.logs),
		seq:      db.seq,
	}
}

func (db *memDB) restore(t memTables) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products = t.products
	db.requests = t.requests
	db.entries = t.entries
	db.settings = t.settings
	db.logs = t.logs
	db.seq = t.seq
}

func (db *memDB) inTx(ctx context.Context, fn func(context.Context) error) error {
	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *memDB) nextID() int64 {
	db.seq++
	return db.seq
}

func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

// useMemTx routes service transactions to db for the duration of the test.
func useMemTx(t *testing.T, db *memDB) {
	t.Helper()
	prevTx, prevSp := inTxFn, inSavepointFn
	inTxFn = db.inTx
	inSavepointFn = db.inTx
	t.Cleanup(func() {
		inTxFn = prevTx
		inSavepointFn = prevSp
	})
}

func (db *memDB) addProduct(p product.Product) *product.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.nextID()
	} else if p.ID > db.seq {
		db.seq = p.ID
	}
	if p.Status == "" {
		p.Status = product.StatusActive
	}
	db.products[p.ID] = p
	return &p
}

// product returns a copy of the stored row, or nil when there is none.
func (db *memDB) product(id int64) *product.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.products[id]
	if !ok {
		return nil
	}
	return &p
}

func (db *memDB) requestsWhere(match func(changerequest.PendingRequest) bool) []changerequest.PendingRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []changerequest.PendingRequest
	for _, id := range slices.Sorted(maps.Keys(db.requests)) {
		if r := db.requests[id]; match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (db *memDB) entriesWhere(match func(activity.Entry) bool) []activity.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []activity.Entry
	for _, id := range slices.Sorted(maps.Keys(db.entries)) {
		if e := db.entries[id]; match(e) {
			out = append(out, e)
		}
	}
	return out
}

func allRequests(changerequest.PendingRequest) bool { return true }
func allEntries(activity.Entry) bool                { return true }

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type memProducts struct{ db *memDB }

func (r memProducts) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r memProducts) GetForUpdate(ctx context.Context, id int64) (*product.Product, error) {
	return r.GetByID(ctx, id)
}

func (r memProducts) Create(ctx context.Context, p *product.Product, actorID int64) (*product.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failProductCreate != nil {
		return nil, r.db.failProductCreate
	}
	out := *p
	out.ID = r.db.nextID()
	out.CreatedAt = r.db.tick()
	out.UpdatedAt = out.CreatedAt
	out.UpdatedBy = &actorID
	r.db.products[out.ID] = out
	return &out, nil
}

func (r memProducts) Update(ctx context.Context, id int64, changes product.Changes, actorID int64) (*product.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failProductUpdate != nil {
		return nil, r.db.failProductUpdate
	}
	p, ok := r.db.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	next, err := p.Apply(changes)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = r.db.tick()
	next.UpdatedBy = &actorID
	r.db.products[id] = *next
	return next, nil
}

func (r memProducts) Deactivate(ctx context.Context, ids []int64, actorID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var changed []int64
	for _, id := range ids {
		p, ok := r.db.products[id]
		if !ok || !p.IsActive() {
			continue
		}
		p.Status = product.StatusInactive
		p.UpdatedBy = &actorID
		r.db.products[id] = p
		changed = append(changed, id)
	}
	return changed, nil
}

func (r memProducts) active(params *product.FindParams) []product.Product {
	var out []product.Product
	for _, id := range slices.Sorted(maps.Keys(r.db.products)) {
		p := r.db.products[id]
		if !p.IsActive() {
			continue
		}
		if s := strings.ToLower(params.Search); s != "" && !strings.Contains(strings.ToLower(p.Name), s) {
			continue
		}
		out = append(out, p)
	}
	if params.Descending {
		slices.Reverse(out)
	}
	return out
}

func (r memProducts) ListWithStatus(ctx context.Context, params *product.FindParams) ([]*product.WithStatus, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*product.WithStatus
	for _, p := range paginate(r.active(params), params.Limit, params.Offset) {
		item := &product.WithStatus{Product: p}
		if e := r.latestFor(p.ID); e != nil {
			item.Latest = &product.LatestActivity{Status: string(e.Status), FieldName: e.FieldName, RejectionReason: e.RejectionReason}
		}
		out = append(out, item)
	}
	return out, nil
}

func (r memProducts) latestFor(id int64) *activity.Entry {
	rank := func(s activity.Status) int {
		switch s {
		case activity.StatusPending:
			return 0
		case activity.StatusRejected:
			return 1
		}
		return 2
	}
	var best *activity.Entry
	for _, e := range r.db.entries {
		if e.EntityID != id {
			continue
		}
		if best == nil || rank(e.Status) < rank(best.Status) ||
			(rank(e.Status) == rank(best.Status) && e.ID > best.ID) {
			cp := e
			best = &cp
		}
	}
	return best
}

func (r memProducts) Count(ctx context.Context, params *product.FindParams) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.active(params))), nil
}

type memRequests struct{ db *memDB }

func (r memRequests) GetByID(ctx context.Context, id int64) (*changerequest.PendingRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	return &req, nil
}

func (r memRequests) GetForUpdate(ctx context.Context, id int64) (*changerequest.PendingRequest, error) {
	return r.GetByID(ctx, id)
}

func (r memRequests) Create(ctx context.Context, req *changerequest.PendingRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.forcedUnique > 0 {
		r.db.forcedUnique--
		return uniqueViolation("uq_pending_requests_active_field")
	}
	if req.Change.Kind() == changerequest.KindFieldUpdate {
		for _, other := range r.db.requests {
			if other.IsPending() && other.EntityID == req.EntityID &&
				other.Change.Kind() == changerequest.KindFieldUpdate && other.FieldName() == req.FieldName() {
				return uniqueViolation("uq_pending_requests_active_field")
			}
		}
	}
	req.ID = r.db.nextID()
	req.CreatedAt = r.db.tick()
	req.UpdatedAt = req.CreatedAt
	r.db.requests[req.ID] = *req
	return nil
}

func (r memRequests) Resolve(ctx context.Context, req *changerequest.PendingRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.requests[req.ID]
	if !ok {
		return changerequest.ErrNotFound
	}
	cur.Status = req.Status
	cur.AdminID = req.AdminID
	cur.RejectionReason = req.RejectionReason
	cur.EntityID = req.EntityID
	cur.UpdatedAt = r.db.tick()
	r.db.requests[req.ID] = cur
	return nil
}

func (r memRequests) DeletePending(ctx context.Context, entityID int64, fieldName string) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []int64
	for id, req := range r.db.requests {
		if req.IsPending() && req.EntityID == entityID && req.FieldName() == fieldName {
			delete(r.db.requests, id)
			ids = append(ids, id)
		}
	}
	// request_id is ON DELETE SET NULL
	for id, e := range r.db.entries {
		if e.RequestID != nil && slices.Contains(ids, *e.RequestID) {
			e.RequestID = nil
			r.db.entries[id] = e
		}
	}
	return ids, nil
}

func (r memRequests) filter(params *changerequest.FindParams) []*changerequest.PendingRequest {
	var out []*changerequest.PendingRequest
	for _, req := range r.db.requests {
		if params.Status != "" && req.Status != params.Status {
			continue
		}
		if params.RequestedBy != nil && req.RequestedBy != *params.RequestedBy {
			continue
		}
		cp := req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memRequests) List(ctx context.Context, params *changerequest.FindParams) ([]*changerequest.PendingRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return paginate(r.filter(params), params.Limit, params.Offset), nil
}

func (r memRequests) Count(ctx context.Context, params *changerequest.FindParams) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.filter(params))), nil
}

type memActivity struct{ db *memDB }

func (r memActivity) get(id int64) (*activity.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.entries[id]
	if !ok {
		return nil, activity.ErrNotFound
	}
	return &e, nil
}

func (r memActivity) GetByID(ctx context.Context, id int64) (*activity.Entry, error) {
	return r.get(id)
}

func (r memActivity) GetForUpdate(ctx context.Context, id int64) (*activity.Entry, error) {
	return r.get(id)
}

func (r memActivity) GetByRequestID(ctx context.Context, requestID int64) (*activity.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.entries {
		if e.RequestID != nil && *e.RequestID == requestID {
			return &e, nil
		}
	}
	return nil, activity.ErrNotFound
}

func (r memActivity) FindRecentDirect(ctx context.Context, entityID int64, fieldName string, createdBy int64, status activity.Status, since time.Time) (*activity.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best *activity.Entry
	for _, e := range r.db.entries {
		if e.RequestID != nil || e.EntityID != entityID || e.FieldName != fieldName ||
			e.CreatedBy != createdBy || e.Status != status || !e.CreatedAt.After(since) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			cp := e
			best = &cp
		}
	}
	if best == nil {
		return nil, activity.ErrNotFound
	}
	return best, nil
}

func (r memActivity) Create(ctx context.Context, e *activity.Entry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failActivityCreate != nil {
		return r.db.failActivityCreate
	}
	if e.Status == activity.StatusPending && e.FieldName != changerequest.CreateColumn {
		for _, other := range r.db.entries {
			if other.Status == activity.StatusPending && other.EntityID == e.EntityID && other.FieldName == e.FieldName {
				return uniqueViolation("uq_activity_log_pending_field")
			}
		}
	}
	e.ID = r.db.nextID()
	e.CreatedAt = r.db.now
	e.UpdatedAt = r.db.now
	r.db.entries[e.ID] = *e
	return nil
}

func (r memActivity) Update(ctx context.Context, e *activity.Entry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.entries[e.ID]
	if !ok {
		return activity.ErrNotFound
	}
	cur.EntityID = e.EntityID
	cur.OldValue = e.OldValue
	cur.NewValue = e.NewValue
	cur.Status = e.Status
	cur.CreatedBy = e.CreatedBy
	cur.AdminID = e.AdminID
	cur.RejectionReason = e.RejectionReason
	if !e.CreatedAt.IsZero() {
		cur.CreatedAt = e.CreatedAt
	}
	cur.UpdatedAt = r.db.now
	r.db.entries[e.ID] = cur
	*e = cur
	return nil
}

func (r memActivity) DeletePending(ctx context.Context, entityID int64, fieldName string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, e := range r.db.entries {
		if e.Status == activity.StatusPending && e.EntityID == entityID && e.FieldName == fieldName {
			delete(r.db.entries, id)
			n++
		}
	}
	return n, nil
}

func (r memActivity) filter(params *activity.FindParams) []*activity.Entry {
	var out []*activity.Entry
	for _, e := range r.db.entries {
		if params.VisibleTo != nil {
			own := e.CreatedBy == *params.VisibleTo
			if !own && e.RequestID != nil {
				req, ok := r.db.requests[*e.RequestID]
				own = ok && req.RequestedBy == *params.VisibleTo
			}
			if !own {
				continue
			}
		}
		if params.CreatedBy != nil && e.CreatedBy != *params.CreatedBy {
			continue
		}
		if params.EntityType != "" && e.EntityType != params.EntityType {
			continue
		}
		if params.EntityID != nil && e.EntityID != *params.EntityID {
			continue
		}
		if params.Status != "" && e.Status != params.Status {
			continue
		}
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memActivity) List(ctx context.Context, params *activity.FindParams) ([]*activity.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return paginate(r.filter(params), params.Limit, params.Offset), nil
}

func (r memActivity) Count(ctx context.Context, params *activity.FindParams) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.filter(params))), nil
}

type memSettings struct{ db *memDB }

func (r memSettings) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := r.db.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r memSettings) Set(ctx context.Context, key, value string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.settings[key] = value
	return nil
}

type memForms struct{ db *memDB }

func (r memForms) Get(ctx context.Context, tableName string) (*fieldschema.Form, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.form == nil || r.db.form.TableName != tableName {
		return &fieldschema.Form{TableName: tableName}, nil
	}
	cp := *r.db.form
	cp.Entities = slices.Clone(r.db.form.Entities)
	return &cp, nil
}

func (r memForms) Upsert(ctx context.Context, form *fieldschema.Form) (*fieldschema.Form, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failFormUpsert != nil {
		return nil, r.db.failFormUpsert
	}
	cp := *form
	cp.Entities = slices.Clone(form.Entities)
	cp.UpdatedAt = r.db.tick()
	r.db.form = &cp
	return &cp, nil
}

type memLogs struct{ db *memDB }

func (r memLogs) Create(ctx context.Context, l *fieldschema.Log) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l.ID = r.db.nextID()
	l.CreatedAt = r.db.tick()
	r.db.logs = append(r.db.logs, *l)
	return nil
}

func (r memLogs) List(ctx context.Context, limit, offset int) ([]*fieldschema.Log, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*fieldschema.Log, 0, len(r.db.logs))
	for i := len(r.db.logs) - 1; i >= 0; i-- {
		l := r.db.logs[i]
		out = append(out, &l)
	}
	return paginate(out, limit, offset), nil
}

func (r memLogs) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.logs)), nil
}

type staticColumns []string

func (c staticColumns) EditableColumns(ctx context.Context, tableName string) ([]string, error) {
	return c, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ setting.Repository = memSettings{}
