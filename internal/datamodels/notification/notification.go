package notification

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminTypePrefix 管理端广播类型前缀
const AdminTypePrefix = "admin_"

// Notification 通知文档。UserID 为 nil 表示面向全体管理员的广播，
// 此时 Type 约定带 admin_ 前缀。
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	Type      string              `bson:"type" json:"type"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// ForAdmins 是否为管理端广播
func (n *Notification) ForAdmins() bool {
	return n.UserID == nil || strings.HasPrefix(n.Type, AdminTypePrefix)
}

// Repository 通知仓储接口。除 MarkRead 外通知永不更新。
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*Notification, error)
	ListAdmin(ctx context.Context, limit int) ([]*Notification, error)
	// MarkRead 只翻转属于该用户的通知，返回实际更新条数
	MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	MarkAdminRead(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}
