package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/mq"
	"github.com/jemishpatoliya/trozzi-sub004/internal/logger"
	"github.com/jemishpatoliya/trozzi-sub004/internal/repository/mongodb"
	"github.com/jemishpatoliya/trozzi-sub004/internal/service"
)

func init() {
	// 初始化监控
	_ = service.GetMonitor()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init()

	db := mongodb.Init(&cfg.Mongo)
	mqConn := mq.Init(&cfg.RabbitMQ)

	notificationRepo := mongodb.NewNotificationRepository(db)
	userRepo := mongodb.NewUserRepository(db)
	provider := service.NewProvider(&cfg.Notify)
	if provider == nil {
		log.Fatalf("no delivery provider configured (notify.provider=%s)", cfg.Notify.Provider)
	}

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.DeliveryQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(service.DeliveryQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	log.Println("notify worker started, waiting for messages...")

	for d := range msgs {
		var job service.DeliveryJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Printf("invalid message: %v", err)
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleJob(context.Background(), cfg, notificationRepo, userRepo, mqConn, provider, &job, d)
	}
}

func handleJob(
	ctx context.Context,
	cfg *config.Config,
	notifications notification.Repository,
	users user.Repository,
	mqConn *amqp.Connection,
	provider service.Provider,
	job *service.DeliveryJob,
	d amqp.Delivery,
) {
	id, err := service.ParseObjectID(job.NotificationID)
	if err != nil {
		log.Printf("bad notification id %q: %v", job.NotificationID, err)
		_ = d.Nack(false, false)
		return
	}

	n, err := notifications.GetByID(ctx, id)
	if err != nil {
		log.Printf("get notification %s failed: %v", job.NotificationID, err)
		service.GetMonitor().RecordDBError()
		// 查不到就当脏数据丢弃，查询出错则重新入队
		_ = d.Nack(false, false)
		return
	}
	if n.ForAdmins() || n.UserID == nil {
		// 管理端广播不外发，确认掉即可
		_ = d.Ack(false)
		return
	}

	u, err := users.GetByID(ctx, *n.UserID)
	if err != nil {
		log.Printf("get user %s failed: %v", n.UserID.Hex(), err)
		service.GetMonitor().RecordDBError()
		_ = d.Nack(false, false)
		return
	}

	receipt, err := provider.Send(ctx, n, u.Email)
	if err != nil {
		log.Printf("delivery attempt %d for %s failed: %v", job.Attempt, job.NotificationID, err)
		service.GetMonitor().RecordDeliveryFailed()
		retryLater(ctx, cfg, mqConn, job)
		_ = d.Ack(false)
		return
	}

	log.Printf("delivered notification %s via %s to %s", job.NotificationID, receipt.Provider, receipt.Recipient)
	service.GetMonitor().RecordDeliverySent()
	if err := d.Ack(false); err != nil {
		log.Printf("failed to ack message: %v", err)
	}
}

// retryLater 未到重试上限则延迟后重新入队，Attempt 递增。
// 用 goroutine 延迟投递而不是阻塞消费循环。
func retryLater(ctx context.Context, cfg *config.Config, mqConn *amqp.Connection, job *service.DeliveryJob) {
	if job.Attempt >= cfg.Notify.MaxAttempts {
		log.Printf("notification %s dropped after %d attempts", job.NotificationID, job.Attempt)
		return
	}
	next := service.DeliveryJob{NotificationID: job.NotificationID, Attempt: job.Attempt + 1}
	delay := time.Duration(cfg.Notify.RetryDelaySeconds) * time.Second
	time.AfterFunc(delay, func() {
		body, _ := json.Marshal(next)
		if err := mq.PublishJSON(ctx, mqConn, service.DeliveryQueue, body); err != nil {
			log.Printf("failed to requeue notification %s: %v", next.NotificationID, err)
			service.GetMonitor().RecordMQError()
		}
	})
}
