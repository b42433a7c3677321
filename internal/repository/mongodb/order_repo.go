package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
)

type orderRepo struct {
	coll *mongo.Collection
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *mongo.Database) order.Repository {
	return &orderRepo{coll: db.Collection("orders")}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, o)
	return err
}

func (r *orderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*order.Order, error) {
	var o order.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*order.Order, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *orderRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*order.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *orderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	var list []*order.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) list(ctx context.Context, filter bson.M) ([]*order.Order, error) {
	cur, err := r.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var list []*order.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status order.Status) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *orderRepo) CountBetween(ctx context.Context, from, to time.Time, excludeCancelled bool) (int64, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}}
	if excludeCancelled {
		filter["status"] = bson.M{"$ne": order.StatusCancelled}
	}
	return r.coll.CountDocuments(ctx, filter)
}

func (r *orderRepo) RevenueBetween(ctx context.Context, from, to time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": from, "$lt": to},
			"status":    bson.M{"$ne": order.StatusCancelled},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$total"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *orderRepo) StatsByDay(ctx context.Context, from, to time.Time) (map[string]order.DayStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": from, "$lt": to},
			"status":    bson.M{"$ne": order.StatusCancelled},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"orders": bson.M{"$sum": 1},
			"total":  bson.M{"$sum": "$total"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Day    string  `bson:"_id"`
		Orders int64   `bson:"orders"`
		Total  float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]order.DayStat, len(rows))
	for _, row := range rows {
		out[row.Day] = order.DayStat{Orders: row.Orders, Revenue: row.Total}
	}
	return out, nil
}

func (r *orderRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]order.TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": from, "$lt": to},
			"status":    bson.M{"$ne": order.StatusCancelled},
		}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$items.productId",
			"name":    bson.M{"$first": "$items.name"},
			"units":   bson.M{"$sum": "$items.quantity"},
			"revenue": bson.M{"$sum": bson.M{"$multiply": []interface{}{"$items.price", "$items.quantity"}}},
		}}},
		{{Key: "$sort", Value: bson.M{"units": -1}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []order.TopProduct
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
