package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/cart"
)

type cartRepo struct {
	coll *mongo.Collection
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *mongo.Database) cart.Repository {
	return &cartRepo{coll: db.Collection("carts")}
}

// GetByUser 不存在时返回一个空购物车（首次加购时再落库）
func (r *cartRepo) GetByUser(ctx context.Context, userID primitive.ObjectID) (*cart.Cart, error) {
	var c cart.Cart
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &cart.Cart{UserID: userID, Items: []cart.Item{}}, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) Save(ctx context.Context, c *cart.Cart) error {
	c.UpdatedAt = time.Now()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": c.UserID},
		bson.M{"$set": bson.M{
			"items":       c.Items,
			"totalAmount": c.TotalAmount,
			"updatedAt":   c.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
