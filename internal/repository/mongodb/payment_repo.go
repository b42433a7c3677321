package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
)

type paymentRepo struct {
	coll *mongo.Collection
}

// NewPaymentRepository 创建支付仓储
func NewPaymentRepository(db *mongo.Database) payment.Repository {
	return &paymentRepo{coll: db.Collection("payments")}
}

func (r *paymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

// GetForUser 按 id + userId 联合过滤，归属不符与不存在同样返回 ErrNotFound，
// 避免泄露他人支付单的存在性。
func (r *paymentRepo) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*payment.Payment, error) {
	var p payment.Payment
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	p.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return payment.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*payment.Payment, error) {
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var list []*payment.Payment
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *paymentRepo) LinkedOrderIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := r.coll.Distinct(ctx, "orderId", bson.M{
		"userId":  userID,
		"orderId": bson.M{"$exists": true, "$ne": primitive.NilObjectID},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok && !id.IsZero() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
