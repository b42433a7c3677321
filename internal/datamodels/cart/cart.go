package cart

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item 购物车行项目。Price 为加入时的快照价，不随商品改价变化。
type Item struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int64              `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"addedAt" json:"addedAt"`
}

// Cart 购物车文档，每个用户一份（首次加购时 upsert）
type Cart struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Items       []Item             `bson:"items" json:"items"`
	TotalAmount float64            `bson:"totalAmount" json:"totalAmount"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Recompute 由当前行项目重算总额。任何变更后都必须调用，金额不信任客户端。
func (c *Cart) Recompute() {
	var total float64
	for _, it := range c.Items {
		total += it.Price * float64(it.Quantity)
	}
	c.TotalAmount = total
}

// Count 购物车内商品件数（数量合计）
func (c *Cart) Count() int64 {
	var n int64
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Repository 购物车仓储接口
type Repository interface {
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*Cart, error)
	// Save 按 userId 整文档 upsert
	Save(ctx context.Context, c *Cart) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}
