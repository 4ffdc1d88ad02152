// Package memory provides an embedded implementation of the ledger store.
// It backs the test suite and the "memory" storage driver, and is the
// reference implementation of the atomic multi-line sale apply: per-batch
// mutexes serialize quantity writes, locks are taken in sorted id order to
// avoid deadlock, and a per-key mutex plays the role of the unique index on
// the idempotency key.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
)

// Store is an in-memory ledger store.
type Store struct {
	mu          sync.Mutex
	batches     map[string]*models.Batch
	batchLocks  map[string]*sync.Mutex
	byNameBatch map[string]string // name|batchNumber -> batch id
	sales       map[string]*models.SaleRecord
	byKey       map[string]string // idempotencyKey -> sale id
	keyLocks    map[string]*sync.Mutex
	logger      *zap.Logger
}

// NewStore creates an empty in-memory store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		batches:     map[string]*models.Batch{},
		batchLocks:  map[string]*sync.Mutex{},
		byNameBatch: map[string]string{},
		sales:       map[string]*models.SaleRecord{},
		byKey:       map[string]string{},
		keyLocks:    map[string]*sync.Mutex{},
		logger:      logger,
	}
}

func nameKey(name, batchNumber string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(batchNumber)
}

// InsertBatch stores a new batch, enforcing the (name, batchNumber)
// uniqueness constraint.
func (s *Store) InsertBatch(_ context.Context, b *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[b.ID]; ok {
		return repository.ErrDuplicateKey
	}
	nk := nameKey(b.Name, b.BatchNumber)
	if _, ok := s.byNameBatch[nk]; ok {
		return repository.ErrDuplicateKey
	}

	cp := *b
	s.batches[b.ID] = &cp
	s.byNameBatch[nk] = b.ID
	s.batchLocks[b.ID] = &sync.Mutex{}
	return nil
}

// GetBatch returns a copy of the batch by id.
func (s *Store) GetBatch(_ context.Context, id string) (*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// UpdateBatch replaces the stored batch fields, keeping the name index
// consistent.
func (s *Store) UpdateBatch(_ context.Context, b *models.Batch) error {
	lk, err := s.lockForBatch(b.ID)
	if err != nil {
		return err
	}
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.batches[b.ID]
	if !ok {
		return repository.ErrNotFound
	}

	newNK := nameKey(b.Name, b.BatchNumber)
	oldNK := nameKey(old.Name, old.BatchNumber)
	if newNK != oldNK {
		if _, taken := s.byNameBatch[newNK]; taken {
			return repository.ErrDuplicateKey
		}
		delete(s.byNameBatch, oldNK)
		s.byNameBatch[newNK] = b.ID
	}

	cp := *b
	cp.UpdatedAt = time.Now().UTC()
	s.batches[b.ID] = &cp
	return nil
}

// DeleteBatch removes a batch. Sales keep their denormalized snapshots.
func (s *Store) DeleteBatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.byNameBatch, nameKey(b.Name, b.BatchNumber))
	delete(s.batches, id)
	delete(s.batchLocks, id)
	return nil
}

// ListBatches returns copies of all batches ordered by name, then batch
// number.
func (s *Store) ListBatches(_ context.Context) ([]models.Batch, error) {
	s.mu.Lock()
	out := make([]models.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return out, nil
}

// AdjustQuantity applies a signed delta to a batch quantity. Calls for the
// same batch id serialize on its mutex so interleaved decrements never lose
// updates or go negative.
func (s *Store) AdjustQuantity(_ context.Context, id string, delta int) (int, error) {
	lk, err := s.lockForBatch(id)
	if err != nil {
		return 0, err
	}
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if b.Quantity+delta < 0 {
		return 0, &models.InsufficientStockError{
			BatchID:   id,
			Requested: -delta,
			Available: b.Quantity,
		}
	}
	b.Quantity += delta
	b.UpdatedAt = time.Now().UTC()
	return b.Quantity, nil
}

// ApplySale performs the atomic multi-line apply. Lock order is the key
// mutex first, then batch mutexes sorted by id, so overlapping concurrent
// sales cannot deadlock. All lines are validated before any quantity moves.
func (s *Store) ApplySale(_ context.Context, sale *models.SaleRecord) error {
	keyLk := s.lockForKey(sale.IdempotencyKey)
	keyLk.Lock()
	defer keyLk.Unlock()

	s.mu.Lock()
	if _, dup := s.byKey[sale.IdempotencyKey]; dup {
		s.mu.Unlock()
		return repository.ErrDuplicateKey
	}
	s.mu.Unlock()

	// Requested units per batch; duplicate lines for one batch validate
	// against their combined total.
	wanted := map[string]int{}
	for _, l := range sale.Lines {
		wanted[l.BatchID] += l.Quantity
	}
	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	locked := make([]*sync.Mutex, 0, len(ids))
	unlock := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
	for _, id := range ids {
		lk, err := s.lockForBatch(id)
		if err != nil {
			unlock()
			return &models.BatchNotFoundError{BatchID: id}
		}
		lk.Lock()
		locked = append(locked, lk)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		b, ok := s.batches[id]
		if !ok {
			return &models.BatchNotFoundError{BatchID: id}
		}
		if b.Quantity < wanted[id] {
			return &models.InsufficientStockError{
				BatchID:   id,
				Requested: wanted[id],
				Available: b.Quantity,
			}
		}
	}

	now := time.Now().UTC()
	for i := range sale.Lines {
		b := s.batches[sale.Lines[i].BatchID]
		b.Quantity -= sale.Lines[i].Quantity
		b.UpdatedAt = now
		sale.Lines[i].Name = b.Name
		sale.Lines[i].BatchNumber = b.BatchNumber
	}

	sale.SyncState = models.SyncSynced
	sale.CreatedAt = now
	cp := cloneSale(sale)
	s.sales[sale.ID] = cp
	s.byKey[sale.IdempotencyKey] = sale.ID

	s.logger.Debug("sale applied",
		zap.String("sale_id", sale.ID),
		zap.String("idempotency_key", sale.IdempotencyKey),
		zap.Int("lines", len(sale.Lines)))
	return nil
}

// GetSaleByKey looks a committed sale up by its idempotency key.
func (s *Store) GetSaleByKey(_ context.Context, key string) (*models.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSale(s.sales[id]), nil
}

// ListSalesSince returns sales occurring at or after the given time, ordered
// by occurrence.
func (s *Store) ListSalesSince(_ context.Context, since time.Time) ([]models.SaleRecord, error) {
	s.mu.Lock()
	out := make([]models.SaleRecord, 0, len(s.sales))
	for _, rec := range s.sales {
		if rec.OccurredAt.Before(since) {
			continue
		}
		out = append(out, *cloneSale(rec))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// Close is a no-op for the embedded store.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) lockForBatch(id string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.batchLocks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return lk, nil
}

func (s *Store) lockForKey(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.keyLocks[key]
	if !ok {
		lk = &sync.Mutex{}
		s.keyLocks[key] = lk
	}
	return lk
}

func cloneSale(rec *models.SaleRecord) *models.SaleRecord {
	cp := *rec
	cp.Lines = make([]models.SaleLine, len(rec.Lines))
	copy(cp.Lines, rec.Lines)
	return &cp
}
