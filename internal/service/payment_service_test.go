package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
)

func newPaymentFixture() (*PaymentService, *fakePaymentRepo, *fakeOrderRepo) {
	payments := newFakePaymentRepo()
	orders := newFakeOrderRepo()
	gw := NewMockGateway(&config.PaymentConfig{
		RedirectBaseURL: "https://pay.example.com/checkout",
		UPIPayee:        "shop@upi",
	})
	// client 为 nil：内存仓储下直接走非事务路径
	return NewPaymentService(nil, payments, orders, gw, nil), payments, orders
}

func TestCreateAttemptUPIIntent(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(context.Background(), userID, 499.5, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, "INR", p.Currency)
	assert.Equal(t, userID, p.UserID)
	assert.False(t, p.Linked())
	assert.Regexp(t, `^upi_\d+_[0-9a-f]{8}$`, p.ProviderOrderID)

	require.NotNil(t, res.NextAction)
	assert.Equal(t, "upi_intent", res.NextAction.Kind)
	assert.True(t, strings.HasPrefix(res.NextAction.UPIIntent, "upi://pay?"))
	assert.Contains(t, res.NextAction.UPIIntent, "pa=shop%40upi")
}

func TestCreateAttemptRedirectProvider(t *testing.T) {
	svc, _, _ := newPaymentFixture()

	res, err := svc.CreateAttempt(context.Background(), primitive.NewObjectID(), 100, "INR", payment.ProviderPhonePe, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, "redirect", res.NextAction.Kind)
	assert.Contains(t, res.NextAction.RedirectURL, "/phonepe/")
}

func TestCreateAttemptValidation(t *testing.T) {
	svc, _, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	var ve *ValidationError
	_, err := svc.CreateAttempt(ctx, userID, 0, "", payment.ProviderUPI, primitive.NilObjectID)
	assert.ErrorAs(t, err, &ve)

	_, err = svc.CreateAttempt(ctx, userID, 10, "", payment.Provider("cash"), primitive.NilObjectID)
	assert.ErrorAs(t, err, &ve)

	// 关联他人订单按不存在处理
	other, err := BuildOrder(primitive.NewObjectID(), validOrderInput(), order.StatusNew)
	require.NoError(t, err)
	require.NoError(t, orders.Create(ctx, other))
	_, err = svc.CreateAttempt(ctx, userID, 10, "", payment.ProviderUPI, other.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestVerifyCompletedMaterializesPaidOrder(t *testing.T) {
	svc, _, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	p, err := svc.Verify(ctx, userID, &VerifyInput{
		PaymentID:         res.Payment.ID,
		Status:            payment.StatusCompleted,
		ProviderPaymentID: "prov_pay_1",
		OrderData:         validOrderInput(),
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	require.True(t, p.Linked(), "completed verify with orderData must link an order")

	o, err := orders.GetByID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, userID, o.UserID, "materialized order carries the payer's userId")
	assert.Equal(t, 25.0, o.Total)
	assert.Len(t, orders.orders, 1)
}

func TestVerifyIdempotentOnCompleted(t *testing.T) {
	svc, _, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	in := &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.StatusCompleted,
		OrderData: validOrderInput(),
	}
	first, err := svc.Verify(ctx, userID, in)
	require.NoError(t, err)

	// 重复核销是 no-op，不会落第二张订单
	second, err := svc.Verify(ctx, userID, in)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, orders.orders, 1)
}

func TestVerifyLinkedOrderMovesToPaid(t *testing.T) {
	svc, _, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	o, err := BuildOrder(userID, validOrderInput(), order.StatusNew)
	require.NoError(t, err)
	require.NoError(t, orders.Create(ctx, o))

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, o.ID)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, userID, &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.StatusCompleted,
	})
	require.NoError(t, err)

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.Len(t, orders.orders, 1, "no extra order materialized for linked payments")
}

func TestVerifyFailedOnlyUpdatesPayment(t *testing.T) {
	svc, payments, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	p, err := svc.Verify(ctx, userID, &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.StatusFailed,
		OrderData: validOrderInput(),
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, p.Status)
	assert.Empty(t, orders.orders, "failed verify must not create an order")

	stored, err := payments.GetForUser(ctx, p.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, stored.Status)
}

func TestVerifyOrphanedCompletion(t *testing.T) {
	svc, payments, orders := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	// 既无关联订单也无 orderData：支付完成但留作对账
	p, err := svc.Verify(ctx, userID, &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.False(t, p.Linked())
	assert.Empty(t, orders.orders)

	stored, err := payments.GetForUser(ctx, p.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, stored.Status)
}

func TestVerifyOwnershipAndStatusValidation(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	res, err := svc.CreateAttempt(ctx, userID, 25, "", payment.ProviderUPI, primitive.NilObjectID)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, primitive.NewObjectID(), &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.StatusCompleted,
	})
	assert.ErrorIs(t, err, payment.ErrNotFound)

	var ve *ValidationError
	_, err = svc.Verify(ctx, userID, &VerifyInput{
		PaymentID: res.Payment.ID,
		Status:    payment.Status("maybe"),
	})
	assert.ErrorAs(t, err, &ve)
}
