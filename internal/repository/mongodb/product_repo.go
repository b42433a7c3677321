package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
)

type productRepo struct {
	coll *mongo.Collection
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *mongo.Database) product.Repository {
	return &productRepo{coll: db.Collection("products")}
}

func (r *productRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*product.Product, error) {
	var p product.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	var p product.Product
	if err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListPublic(ctx context.Context) ([]*product.Product, error) {
	return r.list(ctx, bson.M{
		"status":     product.StatusActive,
		"visibility": product.VisibilityPublic,
	})
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	return r.list(ctx, bson.M{})
}

func (r *productRepo) list(ctx context.Context, filter bson.M) ([]*product.Product, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var list []*product.Product
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	p.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *productRepo) AddReview(ctx context.Context, productID primitive.ObjectID, rv *product.Review) error {
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	rv.CreatedAt = time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{
			"$push": bson.M{"reviews": rv},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *productRepo) SetReviewStatus(ctx context.Context, productID, reviewID primitive.ObjectID, status product.ReviewStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "reviews._id": reviewID},
		bson.M{"$set": bson.M{"reviews.$.status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *productRepo) CountActive(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"status": product.StatusActive})
}

func (r *productRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
}

func (r *productRepo) ReviewStatsBetween(ctx context.Context, from, to time.Time) (*product.ReviewStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$match", Value: bson.M{
			"reviews.status":    product.ReviewApproved,
			"reviews.createdAt": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"count":     bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$reviews.rating"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Count     int64   `bson:"count"`
		AvgRating float64 `bson:"avgRating"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &product.ReviewStats{}, nil
	}
	return &product.ReviewStats{Count: rows[0].Count, AvgRating: rows[0].AvgRating}, nil
}

func (r *productRepo) ListLowStock(ctx context.Context, threshold int64) ([]*product.Product, error) {
	return r.list(ctx, bson.M{
		"status": product.StatusActive,
		"stock":  bson.M{"$lte": threshold},
	})
}
