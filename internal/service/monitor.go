package service

import (
	"sync"
	"time"
)

// Monitor 进程内计数器，用于后台观察错误与吞吐
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors int64
	MQErrors    int64
	DBErrors    int64

	// 吞吐统计
	OrdersCreated     int64
	PaymentAttempts   int64
	PaymentsCompleted int64
	DeliveriesSent    int64
	DeliveriesFailed  int64

	// 时间统计
	LastRedisError  time.Time
	LastMQError     time.Time
	LastDBError     time.Time
	LastOrderTime   time.Time
	LastPaymentTime time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录 Redis 错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录 MQ 错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordOrderCreated 记录下单
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
	m.LastOrderTime = time.Now()
}

// RecordPaymentAttempt 记录支付发起
func (m *Monitor) RecordPaymentAttempt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentAttempts++
	m.LastPaymentTime = time.Now()
}

// RecordPaymentCompleted 记录支付完成
func (m *Monitor) RecordPaymentCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentsCompleted++
	m.LastPaymentTime = time.Now()
}

// RecordDeliverySent 记录通知外发成功
func (m *Monitor) RecordDeliverySent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveriesSent++
}

// RecordDeliveryFailed 记录通知外发失败
func (m *Monitor) RecordDeliveryFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveriesFailed++
}

// MonitorSnapshot 对外暴露的只读快照
type MonitorSnapshot struct {
	RedisErrors       int64     `json:"redisErrors"`
	MQErrors          int64     `json:"mqErrors"`
	DBErrors          int64     `json:"dbErrors"`
	OrdersCreated     int64     `json:"ordersCreated"`
	PaymentAttempts   int64     `json:"paymentAttempts"`
	PaymentsCompleted int64     `json:"paymentsCompleted"`
	DeliveriesSent    int64     `json:"deliveriesSent"`
	DeliveriesFailed  int64     `json:"deliveriesFailed"`
	LastOrderTime     time.Time `json:"lastOrderTime"`
	LastPaymentTime   time.Time `json:"lastPaymentTime"`
}

// Snapshot 拷贝当前计数
func (m *Monitor) Snapshot() MonitorSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MonitorSnapshot{
		RedisErrors:       m.RedisErrors,
		MQErrors:          m.MQErrors,
		DBErrors:          m.DBErrors,
		OrdersCreated:     m.OrdersCreated,
		PaymentAttempts:   m.PaymentAttempts,
		PaymentsCompleted: m.PaymentsCompleted,
		DeliveriesSent:    m.DeliveriesSent,
		DeliveriesFailed:  m.DeliveriesFailed,
		LastOrderTime:     m.LastOrderTime,
		LastPaymentTime:   m.LastPaymentTime,
	}
}
