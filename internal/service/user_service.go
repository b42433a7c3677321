package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jemishpatoliya/trozzi-sub004/internal/auth"
	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
)

// ErrInvalidCredentials 登录凭证错误
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService 账号服务：前台用户注册/登录 + 管理员登录
type UserService struct {
	users  user.Repository
	admins user.AdminRepository
	jwt    *config.JWTConfig
}

// NewUserService 创建账号服务
func NewUserService(users user.Repository, admins user.AdminRepository, jwt *config.JWTConfig) *UserService {
	return &UserService{users: users, admins: admins, jwt: jwt}
}

// Register 前台注册
func (s *UserService) Register(ctx context.Context, name, email, phone, password string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, Invalidf("name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, Invalidf("invalid email")
	}
	if len(password) < 6 {
		return nil, Invalidf("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 前台登录，返回 JWT
func (s *UserService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.jwt, u.ID.Hex(), user.RoleUser, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// AdminLogin 管理员登录（独立集合，token 里带 admin 角色）
func (s *UserService) AdminLogin(ctx context.Context, email, password string) (string, *user.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.jwt, a.ID.Hex(), user.RoleAdmin, a.Email)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

// GetUser worker/路由按 id 取用户
func (s *UserService) GetUser(ctx context.Context, idHex string) (*user.User, error) {
	id, err := ParseObjectID(idHex)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return s.users.GetByID(ctx, id)
}
