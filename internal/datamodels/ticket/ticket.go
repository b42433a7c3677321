package ticket

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound 工单不存在
var ErrNotFound = errors.New("ticket not found")

// Status 工单状态。首条管理员回复会把 open 自动推进到 in_progress。
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Priority 工单优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 是否为已知优先级
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Reply 工单回复，只追加不修改
type Reply struct {
	UserID    primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Author    string             `bson:"author" json:"author"`
	IsAdmin   bool               `bson:"isAdmin" json:"isAdmin"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Ticket 客服工单文档
type Ticket struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TicketID  string             `bson:"ticketId" json:"ticketId"` // TKT-xxxxxxxx
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Subject   string             `bson:"subject" json:"subject"`
	Message   string             `bson:"message" json:"message"`
	Status    Status             `bson:"status" json:"status"`
	Priority  Priority           `bson:"priority" json:"priority"`
	Replies   []Reply            `bson:"replies" json:"replies"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Repository 工单仓储接口
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByTicketID(ctx context.Context, ticketID string) (*Ticket, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*Ticket, error)
	ListAll(ctx context.Context) ([]*Ticket, error)
	Update(ctx context.Context, t *Ticket) error
}
