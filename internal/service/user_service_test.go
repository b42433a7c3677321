package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jemishpatoliya/trozzi-sub004/internal/auth"
	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
)

func newUserFixture() (*UserService, *fakeUserRepo, *fakeAdminRepo, *config.JWTConfig) {
	users := newFakeUserRepo()
	admins := newFakeAdminRepo()
	jwtCfg := &config.JWTConfig{Secret: "test-secret"}
	return NewUserService(users, admins, jwtCfg), users, admins, jwtCfg
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _, jwtCfg := newUserFixture()
	ctx := context.Background()

	u, err := svc.Register(ctx, "Asha", "  Asha@Example.COM ", "9999999999", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email, "email normalized to lowercase")
	assert.NotEqual(t, "secret1", u.PasswordHash)

	token, got, err := svc.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims, err := auth.ParseToken(jwtCfg, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, user.RoleUser, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	ctx := context.Background()

	var ve *ValidationError
	_, err := svc.Register(ctx, "", "a@b.com", "", "secret1")
	assert.ErrorAs(t, err, &ve)

	_, err = svc.Register(ctx, "Asha", "not-an-email", "", "secret1")
	assert.ErrorAs(t, err, &ve)

	_, err = svc.Register(ctx, "Asha", "a@b.com", "", "short")
	assert.ErrorAs(t, err, &ve)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Asha", "a@b.com", "", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "a@b.com", "", "secret2")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Asha", "a@b.com", "", "secret1")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 不存在的账号与密码错误同样对待，不泄露账号是否存在
	_, _, err = svc.Login(ctx, "nobody@b.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLogin(t *testing.T) {
	svc, _, admins, jwtCfg := newUserFixture()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	a := &user.Admin{Name: "Ops", Email: "ops@shop.com", PasswordHash: string(hash)}
	require.NoError(t, admins.Create(ctx, a))

	token, got, err := svc.AdminLogin(ctx, "ops@shop.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	claims, err := auth.ParseToken(jwtCfg, token)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, claims.Role)

	_, _, err = svc.AdminLogin(ctx, "ops@shop.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
