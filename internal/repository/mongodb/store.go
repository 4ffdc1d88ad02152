// Package mongodb implements the ledger store on MongoDB. The atomic
// multi-line sale apply runs inside a session transaction; the exactly-once
// guarantee rests on a unique index over the sale idempotency key, not on a
// pre-check.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
)

const (
	batchCollection = "batches"
	saleCollection  = "sales"
)

// Store is a MongoDB-backed ledger store.
type Store struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// NewStore connects to MongoDB, verifies the connection and ensures the
// uniqueness indexes the ledger depends on.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{client: client, dbName: dbName, logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.batches().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "batchNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create batch index: %w", err)
	}

	// This index is what makes reconciliation correct under concurrent
	// duplicate submission.
	_, err = s.sales().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create sale index: %w", err)
	}
	return nil
}

func (s *Store) batches() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(batchCollection)
}

func (s *Store) sales() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(saleCollection)
}

// InsertBatch stores a new batch document.
func (s *Store) InsertBatch(ctx context.Context, b *models.Batch) error {
	doc, err := toBatchDoc(b)
	if err != nil {
		return err
	}
	if _, err := s.batches().InsertOne(ctx, doc); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

// GetBatch fetches a batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var doc batchDoc
	err := s.batches().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return doc.toModel()
}

// UpdateBatch replaces the stored batch document.
func (s *Store) UpdateBatch(ctx context.Context, b *models.Batch) error {
	b.UpdatedAt = time.Now().UTC()
	doc, err := toBatchDoc(b)
	if err != nil {
		return err
	}
	res, err := s.batches().ReplaceOne(ctx, bson.M{"_id": b.ID}, doc)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteBatch removes a batch document. Sales keep their snapshots.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	res, err := s.batches().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapWriteErr(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListBatches returns all batches ordered by name, then batch number.
func (s *Store) ListBatches(ctx context.Context) ([]models.Batch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "batchNumber", Value: 1}})
	cur, err := s.batches().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer cur.Close(ctx)

	var docs []batchDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapReadErr(err)
	}
	out := make([]models.Batch, 0, len(docs))
	for i := range docs {
		b, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// AdjustQuantity applies a signed delta through a single conditional update,
// so concurrent adjustments to one batch serialize server-side and the
// quantity can never be observed negative.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc batchDoc
	err := s.batches().FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.Quantity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, mapReadErr(err)
	}

	// The guarded update matched nothing: either the batch is gone or the
	// delta would overdraw it.
	var existing batchDoc
	lookupErr := s.batches().FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	if lookupErr != nil {
		return 0, mapReadErr(lookupErr)
	}
	return 0, &models.InsufficientStockError{
		BatchID:   id,
		Requested: -delta,
		Available: existing.Quantity,
	}
}

// ApplySale runs the whole apply inside one transaction: validate every
// line, decrement each batch with a quantity-guarded update, snapshot names
// into the lines and insert the sale. Any failure aborts the transaction and
// leaves stock exactly as it was.
func (s *Store) ApplySale(ctx context.Context, sale *models.SaleRecord) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %v", repository.ErrUnavailable, err)
	}
	defer session.EndSession(ctx)

	now := time.Now().UTC()
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for i := range sale.Lines {
			line := &sale.Lines[i]

			var b batchDoc
			findErr := s.batches().FindOne(sc, bson.M{"_id": line.BatchID}).Decode(&b)
			if errors.Is(findErr, mongo.ErrNoDocuments) {
				return nil, &models.BatchNotFoundError{BatchID: line.BatchID}
			}
			if findErr != nil {
				return nil, mapReadErr(findErr)
			}

			res, updErr := s.batches().UpdateOne(sc,
				bson.M{"_id": line.BatchID, "quantity": bson.M{"$gte": line.Quantity}},
				bson.M{"$inc": bson.M{"quantity": -line.Quantity}, "$set": bson.M{"updatedAt": now}})
			if updErr != nil {
				return nil, mapWriteErr(updErr)
			}
			if res.ModifiedCount == 0 {
				return nil, &models.InsufficientStockError{
					BatchID:   line.BatchID,
					Requested: line.Quantity,
					Available: b.Quantity,
				}
			}

			line.Name = b.Name
			line.BatchNumber = b.BatchNumber
		}

		sale.SyncState = models.SyncSynced
		sale.CreatedAt = now
		doc, convErr := toSaleDoc(sale)
		if convErr != nil {
			return nil, convErr
		}
		if _, insErr := s.sales().InsertOne(sc, doc); insErr != nil {
			return nil, mapWriteErr(insErr)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("sale applied",
		zap.String("sale_id", sale.ID),
		zap.String("idempotency_key", sale.IdempotencyKey),
		zap.Int("lines", len(sale.Lines)))
	return nil
}

// GetSaleByKey looks a committed sale up by its idempotency key.
func (s *Store) GetSaleByKey(ctx context.Context, key string) (*models.SaleRecord, error) {
	var doc saleDoc
	err := s.sales().FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&doc)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return doc.toModel()
}

// ListSalesSince returns sales occurring at or after the given time.
func (s *Store) ListSalesSince(ctx context.Context, since time.Time) ([]models.SaleRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}})
	cur, err := s.sales().Find(ctx, bson.M{"occurredAt": bson.M{"$gte": since}}, opts)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer cur.Close(ctx)

	var docs []saleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapReadErr(err)
	}
	out := make([]models.SaleRecord, 0, len(docs))
	for i := range docs {
		rec, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateKey
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func mapReadErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}
