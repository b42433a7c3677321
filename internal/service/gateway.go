package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
)

// NextAction 创建支付后引导客户端的下一步动作
type NextAction struct {
	Kind        string `json:"kind"` // upi_intent / redirect
	UPIIntent   string `json:"upiIntent,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Gateway 支付网关抽象。真实的渠道协议（PhonePe/Paytm/UPI）不在本仓库
// 范围内，这里只约定发起与查询两个动作。
type Gateway interface {
	Initiate(ctx context.Context, p *payment.Payment) (*NextAction, error)
	CheckStatus(ctx context.Context, providerOrderID string) (payment.Status, error)
}

// mockGateway 本地 mock 实现：UPI 渠道返回 intent 链接，
// 其余渠道返回收银台跳转地址。
type mockGateway struct {
	cfg *config.PaymentConfig
}

// NewMockGateway 创建 mock 网关
func NewMockGateway(cfg *config.PaymentConfig) Gateway {
	return &mockGateway{cfg: cfg}
}

func (g *mockGateway) Initiate(ctx context.Context, p *payment.Payment) (*NextAction, error) {
	if p.Provider == payment.ProviderUPI {
		q := url.Values{}
		q.Set("pa", g.cfg.UPIPayee)
		q.Set("tn", "Order payment")
		q.Set("am", fmt.Sprintf("%.2f", p.Amount))
		q.Set("cu", p.Currency)
		q.Set("tr", p.ProviderOrderID)
		return &NextAction{
			Kind:      "upi_intent",
			UPIIntent: "upi://pay?" + q.Encode(),
		}, nil
	}
	return &NextAction{
		Kind:        "redirect",
		RedirectURL: fmt.Sprintf("%s/%s/%s", g.cfg.RedirectBaseURL, p.Provider, p.ProviderOrderID),
	}, nil
}

// CheckStatus mock 网关不维护真实状态，恒报 pending，
// 实际结果由客户端核销回调带入。
func (g *mockGateway) CheckStatus(ctx context.Context, providerOrderID string) (payment.Status, error) {
	return payment.StatusPending, nil
}
