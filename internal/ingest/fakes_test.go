package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/lukasbrandt/speisekarten-tracker/constants"
	"github.com/lukasbrandt/speisekarten-tracker/internal/audit"
	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
	"github.com/lukasbrandt/speisekarten-tracker/internal/entity"
	"github.com/lukasbrandt/speisekarten-tracker/internal/extract"
)

type fakeBatchRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*entity.Batch
	updates int
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{rows: map[uuid.UUID]*entity.Batch{}}
}

func (f *fakeBatchRepo) Create(_ context.Context, b *entity.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, common.NotFoundErrorf("batch %s", id)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBatchRepo) GetByHash(_ context.Context, hash []byte) (*entity.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if string(b.ContentHash) == string(hash) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBatchRepo) Update(_ context.Context, b *entity.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[b.ID]; !ok {
		return common.NotFoundErrorf("batch %s", b.ID)
	}
	cp := *b
	f.rows[b.ID] = &cp
	f.updates++
	return nil
}

func (f *fakeBatchRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeItemRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*entity.ParsedItem
	order []uuid.UUID
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{rows: map[uuid.UUID]*entity.ParsedItem{}}
}

func (f *fakeItemRepo) CreateBulk(_ context.Context, items []*entity.ParsedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		cp := *it
		f.rows[it.ID] = &cp
		f.order = append(f.order, it.ID)
	}
	return nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.ParsedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.rows[id]
	if !ok {
		return nil, common.NotFoundErrorf("item %s", id)
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItemRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*entity.ParsedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ParsedItem
	for _, id := range f.order {
		if it, ok := f.rows[id]; ok && it.BatchID == batchID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) UpdateAction(_ context.Context, id uuid.UUID, action constants.ReviewAction, edited *entity.EditedItemData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.rows[id]
	if !ok {
		return common.NotFoundErrorf("item %s", id)
	}
	it.Action = action
	it.EditedData = edited
	return nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeItemRepo) DeleteByBatch(_ context.Context, batchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, it := range f.rows {
		if it.BatchID == batchID {
			delete(f.rows, id)
		}
	}
	return nil
}

// fakeExtractor returns a canned result or error.
type fakeExtractor struct {
	res   extract.Result
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, []byte) (extract.Result, error) {
	f.calls++
	return f.res, f.err
}

// fakeTxRunner just invokes the function; rollback is simulated by the error
// path alone, which is enough for orchestrator-level assertions.
type fakeTxRunner struct{ calls int }

func (f *fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// spySink records audit actions in order.
type spySink struct {
	mu      sync.Mutex
	actions []string
}

func (s *spySink) Record(_ context.Context, e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, e.Action)
}

func (s *spySink) Close() error { return nil }

func (s *spySink) has(action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions {
		if a == action {
			return true
		}
	}
	return false
}

// memCatalog is an in-memory catalog repository. failAfter > 0 makes the
// n-th write fail, for rollback assertions.
type memCatalog struct {
	mu        sync.Mutex
	rows      []*entity.CatalogMenuItem
	writes    int
	failAfter int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{}
}

func (m *memCatalog) ListByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]*entity.CatalogMenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CatalogMenuItem
	for _, r := range m.rows {
		if r.RestaurantID == restaurantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memCatalog) Create(_ context.Context, item *entity.CatalogMenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.countWrite(); err != nil {
		return err
	}
	m.rows = append(m.rows, item)
	return nil
}

func (m *memCatalog) UpdatePriceAndCategory(_ context.Context, id uuid.UUID, price float64, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.countWrite(); err != nil {
		return err
	}
	for _, r := range m.rows {
		if r.ID == id {
			r.Price = price
			r.Category = category
		}
	}
	return nil
}

func (m *memCatalog) countWrite() error {
	m.writes++
	if m.failAfter > 0 && m.writes >= m.failAfter {
		return errors.New("catalog write failed")
	}
	return nil
}

type fakeBlobStore struct {
	blobs map[string][]byte
	err   error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(relPath string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.blobs[relPath] = data
	return nil
}

func (f *fakeBlobStore) Get(relPath string) ([]byte, error) {
	b, ok := f.blobs[relPath]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return b, nil
}
