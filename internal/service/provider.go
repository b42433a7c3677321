package service

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
)

// DeliveryReceipt 外部投递回执
type DeliveryReceipt struct {
	Provider  string    `json:"provider"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sentAt"`
}

// Provider 通知投递渠道。启动时按配置选一个具体实现。
type Provider interface {
	Send(ctx context.Context, n *notification.Notification, recipient string) (*DeliveryReceipt, error)
}

// NewProvider 按配置选择投递渠道
func NewProvider(cfg *config.NotifyConfig) Provider {
	switch cfg.Provider {
	case "email":
		return &emailProvider{cfg: cfg}
	case "sms":
		return &smsProvider{}
	default:
		return nil
	}
}

// emailProvider 明文 SMTP 投递
type emailProvider struct {
	cfg *config.NotifyConfig
}

func (p *emailProvider) Send(ctx context.Context, n *notification.Notification, recipient string) (*DeliveryReceipt, error) {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		p.cfg.SMTPFrom, recipient, n.Title, n.Message,
	)
	if err := smtp.SendMail(p.cfg.SMTPAddr, nil, p.cfg.SMTPFrom, []string{recipient}, []byte(msg)); err != nil {
		return nil, err
	}
	return &DeliveryReceipt{Provider: "email", Recipient: recipient, SentAt: time.Now()}, nil
}

// smsProvider 占位实现：没有真实短信通道，记日志当作发送成功
type smsProvider struct{}

func (p *smsProvider) Send(ctx context.Context, n *notification.Notification, recipient string) (*DeliveryReceipt, error) {
	zap.L().Info("sms notification",
		zap.String("recipient", recipient),
		zap.String("title", n.Title))
	return &DeliveryReceipt{Provider: "sms", Recipient: recipient, SentAt: time.Now()}, nil
}
