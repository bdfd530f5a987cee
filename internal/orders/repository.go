package orders

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (Order, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Order, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	// TransitionFromPending applies the given terminal fields to the order
	// carrying gatewayOrderID only while it is still pending. It returns
	// mongo.ErrNoDocuments when no pending order matched.
	TransitionFromPending(ctx context.Context, gatewayOrderID string, fields bson.M, now time.Time) (Order, error)
	// UpdateAdmin applies the given fields to the order only while its
	// status is still expectStatus, so a concurrent gateway callback
	// cannot be overwritten. It returns mongo.ErrNoDocuments when no
	// order matched.
	UpdateAdmin(ctx context.Context, id, expectStatus string, fields bson.M, now time.Time) (Order, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, order Order) error {
	_, err := r.col.InsertOne(ctx, order)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Order, error) {
	var order Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (r *MongoRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (Order, error) {
	var order Order
	if err := r.col.FindOne(ctx, bson.M{"razorpayOrderId": gatewayOrderID}).Decode(&order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, r.filterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Order, 0)
	for cursor.Next(ctx) {
		var order Order
		if err := cursor.Decode(&order); err != nil {
			return nil, err
		}
		items = append(items, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, r.filterToBSON(filter))
}

func (r *MongoRepository) TransitionFromPending(ctx context.Context, gatewayOrderID string, fields bson.M, now time.Time) (Order, error) {
	set := bson.M{"updatedAt": now}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	query := bson.M{"razorpayOrderId": gatewayOrderID, "status": StatusPending}

	var updated Order
	if err := r.col.FindOneAndUpdate(ctx, query, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Order{}, err
	}
	return updated, nil
}

func (r *MongoRepository) UpdateAdmin(ctx context.Context, id, expectStatus string, fields bson.M, now time.Time) (Order, error) {
	set := bson.M{"updatedAt": now}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	query := bson.M{"_id": id, "status": expectStatus}

	var updated Order
	if err := r.col.FindOneAndUpdate(ctx, query, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Order{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) filterToBSON(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ServiceType != "" {
		query["serviceType"] = filter.ServiceType
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		query["$or"] = []bson.M{
			{"orderCode": pattern},
			{"name": pattern},
			{"email": pattern},
		}
	}
	return query
}
