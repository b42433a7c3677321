package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 订单不存在
var ErrNotFound = errors.New("order not found")

// Status 订单状态
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusPaid, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// transitions 显式状态转移表。cancelled / returned 为终态。
var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusPaid, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusShipped, StatusReturned, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusCancelled:  {},
	StatusReturned:   {},
}

// InvalidTransitionError 非法状态转移
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}

// CanTransition from 是否允许转移到 to（自转移视为合法的 no-op）
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Item 订单行项目（下单时从购物车/结算入参反范式化拷贝）
type Item struct {
	ProductID primitive.ObjectID `bson:"productId,omitempty" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int64              `bson:"quantity" json:"quantity"`
}

// Customer 收货人信息
type Customer struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Address 收货地址
type Address struct {
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// Order 订单文档。UserID 恒由创建方写入（支付核销创建的订单也不例外），
// 读路径不做补写。
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber string             `bson:"orderNumber" json:"orderNumber"`
	UserID      primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Status      Status             `bson:"status" json:"status"`
	Subtotal    float64            `bson:"subtotal" json:"subtotal"`
	Shipping    float64            `bson:"shipping" json:"shipping"`
	Tax         float64            `bson:"tax" json:"tax"`
	Total       float64            `bson:"total" json:"total"`
	Currency    string             `bson:"currency" json:"currency"`
	Items       []Item             `bson:"items" json:"items"`
	Customer    Customer           `bson:"customer" json:"customer"`
	Address     Address            `bson:"address" json:"address"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*Order, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status Status) error
	CountBetween(ctx context.Context, from, to time.Time, excludeCancelled bool) (int64, error)
	RevenueBetween(ctx context.Context, from, to time.Time) (float64, error)
	StatsByDay(ctx context.Context, from, to time.Time) (map[string]DayStat, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

// DayStat 按天聚合的订单量与营收
type DayStat struct {
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// TopProduct 周期内销量聚合结果
type TopProduct struct {
	ProductID primitive.ObjectID `bson:"_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Units     int64              `bson:"units" json:"units"`
	Revenue   float64            `bson:"revenue" json:"revenue"`
}
