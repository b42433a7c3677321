package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
)

// PaymentService 支付服务。核销是订单与支付状态唯一的耦合点：
// 支付单更新与订单创建/改状态放在同一个 Mongo 事务里，失败一起回滚。
type PaymentService struct {
	client   *mongo.Client // nil 时退化为非事务执行（单测用内存仓储）
	payments payment.Repository
	orders   order.Repository
	gateway  Gateway
	notifier *NotificationService
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	client *mongo.Client,
	payments payment.Repository,
	orders order.Repository,
	gateway Gateway,
	notifier *NotificationService,
) *PaymentService {
	return &PaymentService{
		client:   client,
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
	}
}

// GenerateProviderOrderID 生成渠道侧订单号 <provider>_<毫秒时间戳>_<8位hex>
func GenerateProviderOrderID(p payment.Provider) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s_%d_%s", p, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// CreateAttemptResult 创建支付返回体
type CreateAttemptResult struct {
	Payment    *payment.Payment `json:"payment"`
	NextAction *NextAction      `json:"nextAction"`
}

// CreateAttempt 创建一次支付尝试（pending），可选预先关联订单
func (s *PaymentService) CreateAttempt(
	ctx context.Context,
	userID primitive.ObjectID,
	amount float64,
	currency string,
	provider payment.Provider,
	orderID primitive.ObjectID,
) (*CreateAttemptResult, error) {
	if amount <= 0 {
		return nil, Invalidf("amount must be positive")
	}
	if provider == "" {
		provider = payment.ProviderUPI
	}
	if !provider.Valid() {
		return nil, Invalidf("unknown payment provider: %s", provider)
	}
	if currency == "" {
		currency = defaultCurrency
	}
	if !orderID.IsZero() {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if o.UserID != userID {
			return nil, order.ErrNotFound
		}
	}

	p := &payment.Payment{
		ProviderOrderID: GenerateProviderOrderID(provider),
		Provider:        provider,
		Status:          payment.StatusPending,
		Amount:          amount,
		Currency:        currency,
		UserID:          userID,
		OrderID:         orderID,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	GetMonitor().RecordPaymentAttempt()

	na, err := s.gateway.Initiate(ctx, p)
	if err != nil {
		return nil, err
	}
	return &CreateAttemptResult{Payment: p, NextAction: na}, nil
}

// VerifyInput 核销入参。OrderData 仅在支付单尚未关联订单时使用。
type VerifyInput struct {
	PaymentID         primitive.ObjectID
	Status            payment.Status
	ProviderPaymentID string
	ProviderSignature string
	OrderData         *CreateOrderInput
}

// Verify 核销支付结果。要点：
//   - 支付单必须属于当前用户，否则按不存在处理；
//   - 已完成的支付单重复核销是 no-op，绝不会再落第二张订单；
//   - 成功时要么把已关联订单推到 paid，要么用 orderData 直接物化一张
//     paid 订单（userId 当场写死）；两者都没有就留下一张无主的完成
//     支付单，记日志等对账。
func (s *PaymentService) Verify(ctx context.Context, userID primitive.ObjectID, in *VerifyInput) (*payment.Payment, error) {
	if !in.Status.Valid() {
		return nil, Invalidf("unknown payment status: %s", in.Status)
	}
	p, err := s.payments.GetForUser(ctx, in.PaymentID, userID)
	if err != nil {
		return nil, err
	}
	if p.Status == payment.StatusCompleted {
		return p, nil
	}

	p.Status = in.Status
	p.ProviderPaymentID = in.ProviderPaymentID
	p.ProviderSignature = in.ProviderSignature

	if in.Status != payment.StatusCompleted {
		if err := s.payments.Update(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	reconcile := func(sc context.Context) error {
		switch {
		case p.Linked():
			o, err := s.orders.GetByID(sc, p.OrderID)
			if err != nil {
				return err
			}
			if o.Status != order.StatusPaid {
				if !order.CanTransition(o.Status, order.StatusPaid) {
					return &order.InvalidTransitionError{From: o.Status, To: order.StatusPaid}
				}
				if err := s.orders.UpdateStatus(sc, o.ID, order.StatusPaid); err != nil {
					return err
				}
			}
		case in.OrderData != nil:
			o, err := BuildOrder(userID, in.OrderData, order.StatusPaid)
			if err != nil {
				return err
			}
			if err := s.orders.Create(sc, o); err != nil {
				return err
			}
			p.OrderID = o.ID
		default:
			// 无订单也无 orderData：支付完成但无处挂靠
			zap.L().Warn("completed payment left unlinked",
				zap.String("providerOrderId", p.ProviderOrderID))
		}
		return s.payments.Update(sc, p)
	}

	if s.client != nil {
		session, err := s.client.StartSession()
		if err != nil {
			return nil, err
		}
		defer session.EndSession(ctx)
		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, reconcile(sc)
		})
		if err != nil {
			return nil, err
		}
	} else if err := reconcile(ctx); err != nil {
		return nil, err
	}

	GetMonitor().RecordPaymentCompleted()
	if s.notifier != nil {
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			UserID:  &p.UserID,
			Title:   "Payment received",
			Message: fmt.Sprintf("Payment of %s %.2f via %s was successful.", p.Currency, p.Amount, p.Provider),
			Type:    "payment_completed",
		})
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			Title:   "Payment completed",
			Message: fmt.Sprintf("Payment %s completed for %s %.2f.", p.ProviderOrderID, p.Currency, p.Amount),
			Type:    notification.AdminTypePrefix + "payment_completed",
		})
	}
	return p, nil
}

// ListMine 用户支付单列表
func (s *PaymentService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*payment.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
