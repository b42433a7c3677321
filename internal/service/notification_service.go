package service

import (
	"context"
	"encoding/json"
	"fmt"

	radix "github.com/mediocregopher/radix/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/mq"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/redis"
)

// DeliveryQueue 外部投递任务队列名
const DeliveryQueue = "notify_delivery"

// DeliveryJob 丢进 MQ 的投递任务，worker 消费后经 Provider 外发。
// Attempt 从 1 计数，投递失败由 worker 重新入队直至达到上限。
type DeliveryJob struct {
	NotificationID string `json:"notification_id"`
	Attempt        int    `json:"attempt"`
}

// NotifyInput 通知入参。UserID 为 nil 表示管理端广播。
type NotifyInput struct {
	UserID  *primitive.ObjectID
	Title   string
	Message string
	Type    string
}

// NotificationService 通知中心。写库是唯一的可靠性承诺；
// Redis 广播和 MQ 投递都是尽力而为，失败只记日志不影响写入。
type NotificationService struct {
	repo      notification.Repository
	redisConn radix.Client     // nil 则不广播
	mqConn    *amqp.Connection // nil 则不外发
	cfg       *config.NotifyConfig
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	repo notification.Repository,
	redisConn radix.Client,
	mqConn *amqp.Connection,
	cfg *config.NotifyConfig,
) *NotificationService {
	return &NotificationService{repo: repo, redisConn: redisConn, mqConn: mqConn, cfg: cfg}
}

// Notify 持久化一条通知并做尽力广播/投递
func (s *NotificationService) Notify(ctx context.Context, in *NotifyInput) (*notification.Notification, error) {
	if in.Title == "" || in.Message == "" {
		return nil, Invalidf("title and message are required")
	}
	n := &notification.Notification{
		UserID:  in.UserID,
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.broadcast(n)
	s.enqueueDelivery(ctx, n)
	return n, nil
}

// NotifyAsync 供其他服务的事件钩子使用：任何失败只记日志，
// 不把通知失败传染给触发它的业务操作。
func (s *NotificationService) NotifyAsync(ctx context.Context, in *NotifyInput) {
	if _, err := s.Notify(ctx, in); err != nil {
		zap.L().Warn("notify failed", zap.String("type", in.Type), zap.Error(err))
	}
}

// broadcast 经 Redis 发布到 user:{id} / admin 频道
func (s *NotificationService) broadcast(n *notification.Notification) {
	if s.redisConn == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	if n.UserID != nil {
		if err := redis.Publish(s.redisConn, fmt.Sprintf("user:%s", n.UserID.Hex()), payload); err != nil {
			GetMonitor().RecordRedisError()
			zap.L().Warn("notification broadcast failed", zap.Error(err))
		}
	}
	if n.ForAdmins() {
		if err := redis.Publish(s.redisConn, "admin", payload); err != nil {
			GetMonitor().RecordRedisError()
			zap.L().Warn("notification broadcast failed", zap.Error(err))
		}
	}
}

// enqueueDelivery 把面向用户的通知丢进外部投递队列
func (s *NotificationService) enqueueDelivery(ctx context.Context, n *notification.Notification) {
	if s.mqConn == nil || s.cfg == nil || s.cfg.Provider == "" || s.cfg.Provider == "none" {
		return
	}
	if n.UserID == nil {
		return
	}
	body, err := json.Marshal(&DeliveryJob{NotificationID: n.ID.Hex(), Attempt: 1})
	if err != nil {
		return
	}
	if err := mq.PublishJSON(ctx, s.mqConn, DeliveryQueue, body); err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("enqueue notification delivery failed", zap.Error(err))
	}
}

// ListForUser 用户通知列表
func (s *NotificationService) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*notification.Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// ListForAdmins 管理端广播列表
func (s *NotificationService) ListForAdmins(ctx context.Context, limit int) ([]*notification.Notification, error) {
	return s.repo.ListAdmin(ctx, limit)
}

// MarkRead 批量已读，ids 为空表示全部
func (s *NotificationService) MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	return s.repo.MarkRead(ctx, userID, ids)
}

// MarkAdminRead 管理端批量已读
func (s *NotificationService) MarkAdminRead(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	return s.repo.MarkAdminRead(ctx, ids)
}

// GetByID worker 按 id 取通知正文
func (s *NotificationService) GetByID(ctx context.Context, id primitive.ObjectID) (*notification.Notification, error) {
	return s.repo.GetByID(ctx, id)
}
