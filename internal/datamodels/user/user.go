package user

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound 用户不存在
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail 邮箱已注册
	ErrDuplicateEmail = errors.New("email already registered")
)

// 角色常量，写入 JWT claims
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 前台用户文档
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Admin 管理员文档（与前台用户分开的集合）
type Admin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Repository 前台用户仓储接口
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// AdminRepository 管理员仓储接口
type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
}
