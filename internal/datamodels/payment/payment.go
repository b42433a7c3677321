package payment

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 支付单不存在或不属于当前用户
var ErrNotFound = errors.New("payment not found")

// Status 支付状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Provider 支付渠道
type Provider string

const (
	ProviderPhonePe Provider = "phonepe"
	ProviderPaytm   Provider = "paytm"
	ProviderUPI     Provider = "upi"
)

// Valid 是否为已知渠道
func (p Provider) Valid() bool {
	switch p {
	case ProviderPhonePe, ProviderPaytm, ProviderUPI:
		return true
	}
	return false
}

// Payment 支付单文档。OrderID 为零值表示尚未关联订单，
// 核销成功时要么关联已有订单、要么由 orderData 落一张新订单。
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProviderOrderID   string             `bson:"providerOrderId" json:"providerOrderId"`
	Provider          Provider           `bson:"provider" json:"provider"`
	Status            Status             `bson:"status" json:"status"`
	Amount            float64            `bson:"amount" json:"amount"`
	Currency          string             `bson:"currency" json:"currency"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	OrderID           primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	ProviderPaymentID string             `bson:"providerPaymentId,omitempty" json:"providerPaymentId,omitempty"`
	ProviderSignature string             `bson:"providerSignature,omitempty" json:"providerSignature,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Linked 是否已关联订单
func (p *Payment) Linked() bool {
	return !p.OrderID.IsZero()
}

// Repository 支付仓储接口
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	// GetForUser 按 id 查询并校验归属，不属于该用户时返回 ErrNotFound
	GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*Payment, error)
	// LinkedOrderIDs 用户支付单关联到的订单 id 集合（用于订单列表的并集查询）
	LinkedOrderIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}
