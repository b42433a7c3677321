package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/notification"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
)

// TicketService 客服工单服务
type TicketService struct {
	repo     ticket.Repository
	notifier *NotificationService
}

// NewTicketService 创建工单服务
func NewTicketService(repo ticket.Repository, notifier *NotificationService) *TicketService {
	return &TicketService{repo: repo, notifier: notifier}
}

// GenerateTicketID 生成工单号 TKT-xxxxxxxx
func GenerateTicketID() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create 创建工单，初始状态 open
func (s *TicketService) Create(ctx context.Context, userID primitive.ObjectID, subject, message string, priority ticket.Priority) (*ticket.Ticket, error) {
	if subject == "" || message == "" {
		return nil, Invalidf("subject and message are required")
	}
	if priority == "" {
		priority = ticket.PriorityMedium
	}
	if !priority.Valid() {
		return nil, Invalidf("unknown ticket priority: %s", priority)
	}

	t := &ticket.Ticket{
		TicketID: GenerateTicketID(),
		UserID:   userID,
		Subject:  subject,
		Message:  message,
		Status:   ticket.StatusOpen,
		Priority: priority,
		Replies:  []ticket.Reply{},
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			Title:   "New support ticket",
			Message: fmt.Sprintf("Ticket %s opened: %s", t.TicketID, subject),
			Type:    notification.AdminTypePrefix + "ticket_created",
		})
	}
	return t, nil
}

// Get 用户视角查询，归属不符按不存在处理
func (s *TicketService) Get(ctx context.Context, userID primitive.ObjectID, ticketID string) (*ticket.Ticket, error) {
	t, err := s.repo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ticket.ErrNotFound
	}
	return t, nil
}

// GetAny 后台查询
func (s *TicketService) GetAny(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return s.repo.GetByTicketID(ctx, ticketID)
}

// ListMine 用户工单列表
func (s *TicketService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*ticket.Ticket, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll 后台全量列表
func (s *TicketService) ListAll(ctx context.Context) ([]*ticket.Ticket, error) {
	return s.repo.ListAll(ctx)
}

// Reply 追加回复。首条管理员回复把 open 自动推进到 in_progress。
func (s *TicketService) Reply(ctx context.Context, t *ticket.Ticket, replierID primitive.ObjectID, author, message string, isAdmin bool) (*ticket.Ticket, error) {
	if message == "" {
		return nil, Invalidf("message is required")
	}
	t.Replies = append(t.Replies, ticket.Reply{
		UserID:    replierID,
		Author:    author,
		IsAdmin:   isAdmin,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if isAdmin && t.Status == ticket.StatusOpen {
		t.Status = ticket.StatusInProgress
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	if s.notifier != nil && isAdmin {
		s.notifier.NotifyAsync(ctx, &NotifyInput{
			UserID:  &t.UserID,
			Title:   "Support reply",
			Message: fmt.Sprintf("Your ticket %s has a new reply.", t.TicketID),
			Type:    "ticket_reply",
		})
	}
	return t, nil
}

// SetStatus 后台改工单状态
func (s *TicketService) SetStatus(ctx context.Context, ticketID string, status ticket.Status) (*ticket.Ticket, error) {
	if !status.Valid() {
		return nil, Invalidf("unknown ticket status: %s", status)
	}
	t, err := s.repo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	t.Status = status
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
