package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
)

const defaultCurrency = "INR"

// CreateOrderInput 下单入参（购物车结算或支付核销携带的 orderData）
type CreateOrderInput struct {
	Items    []order.Item   `json:"items"`
	Customer order.Customer `json:"customer"`
	Address  order.Address  `json:"address"`
	Currency string         `json:"currency,omitempty"`
}

// OrderService 订单服务
type OrderService struct {
	orders   order.Repository
	payments payment.Repository
	notifier *NotificationService
}

// NewOrderService 创建订单服务
func NewOrderService(orders order.Repository, payments payment.Repository, notifier *NotificationService) *OrderService {
	return &OrderService{orders: orders, payments: payments, notifier: notifier}
}

// GenerateOrderNumber 生成订单号 ORD-<秒级时间戳后6位>-<6位大写hex>。
// 随机段只有 3 字节，同毫秒碰撞概率极低但非零，最终靠唯一索引兜底。
func GenerateOrderNumber() string {
	ts := time.Now().Unix() % 1000000
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("ORD-%06d-%s", ts, strings.ToUpper(hex.EncodeToString(buf)))
}

// BuildOrder 校验入参并组装订单文档（不落库）。
// 下单与支付核销的订单物化共用这一处金额口径。
func BuildOrder(userID primitive.ObjectID, in *CreateOrderInput, status order.Status) (*order.Order, error) {
	if in == nil || len(in.Items) == 0 {
		return nil, Invalidf("order items must not be empty")
	}
	for i, it := range in.Items {
		if it.Quantity < 1 {
			return nil, Invalidf("items[%d]: quantity must be at least 1", i)
		}
		if it.Price < 0 {
			return nil, Invalidf("items[%d]: price must not be negative", i)
		}
	}
	if in.Customer.Name == "" || in.Customer.Email == "" {
		return nil, Invalidf("customer name and email are required")
	}
	a := in.Address
	if a.Line1 == "" || a.City == "" || a.State == "" || a.PostalCode == "" || a.Country == "" {
		return nil, Invalidf("address line1, city, state, postalCode and country are required")
	}

	var subtotal float64
	for _, it := range in.Items {
		subtotal += it.Price * float64(it.Quantity)
	}
	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	// 运费与税目前为占位 0，留待接入对应引擎
	return &order.Order{
		OrderNumber: GenerateOrderNumber(),
		UserID:      userID,
		Status:      status,
		Subtotal:    subtotal,
		Shipping:    0,
		Tax:         0,
		Total:       subtotal,
		Currency:    currency,
		Items:       in.Items,
		Customer:    in.Customer,
		Address:     in.Address,
	}, nil
}

// Create 结算下单，初始状态 new
func (s *OrderService) Create(ctx context.Context, userID primitive.ObjectID, in *CreateOrderInput) (*order.Order, error) {
	o, err := BuildOrder(userID, in, order.StatusNew)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	GetMonitor().RecordOrderCreated()

	if s.notifier != nil {
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			UserID:  &o.UserID,
			Title:   "Order placed",
			Message: fmt.Sprintf("Your order %s has been placed.", o.OrderNumber),
			Type:    "order_created",
		})
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			Title:   "New order",
			Message: fmt.Sprintf("Order %s placed for %s %.2f.", o.OrderNumber, o.Currency, o.Total),
			Type:    notification.AdminTypePrefix + "order_created",
		})
	}
	return o, nil
}

// Get 按 id 查询并校验归属，不属于该用户时按不存在处理
func (s *OrderService) Get(ctx context.Context, userID, id primitive.ObjectID) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// GetAny 后台按 id 查询（不校验归属）
func (s *OrderService) GetAny(ctx context.Context, id primitive.ObjectID) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListMine 用户订单列表：直接归属的订单，并上经由该用户支付单可达的
// 订单，按 id 去重、创建时间倒序。支付核销在写入时就保证 userId 落库，
// 这里是纯读，不做任何补写。
func (s *OrderService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*order.Order, error) {
	owned, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	linkedIDs, err := s.payments.LinkedOrderIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	linked, err := s.orders.ListByIDs(ctx, linkedIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(owned)+len(linked))
	merged := make([]*order.Order, 0, len(owned)+len(linked))
	for _, o := range append(owned, linked...) {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// ListRecent 后台最近订单
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.orders.ListRecent(ctx, limit)
}

// SetStatus 后台状态流转，走显式转移表，非法转移拒绝
func (s *OrderService) SetStatus(ctx context.Context, id primitive.ObjectID, to order.Status) (*order.Order, error) {
	if !to.Valid() {
		return nil, Invalidf("unknown order status: %s", to)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if !order.CanTransition(o.Status, to) {
		return nil, &order.InvalidTransitionError{From: o.Status, To: to}
	}
	if err := s.orders.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	o.Status = to

	if s.notifier != nil && !o.UserID.IsZero() {
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			UserID:  &o.UserID,
			Title:   "Order update",
			Message: fmt.Sprintf("Order %s is now %s.", o.OrderNumber, to),
			Type:    "order_status",
		})
	}
	zap.L().Info("order status changed",
		zap.String("orderNumber", o.OrderNumber),
		zap.String("status", string(to)))
	return o, nil
}
