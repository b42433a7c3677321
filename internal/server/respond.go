package server

import (
	"errors"
	"strings"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/jemishpatoliya/trozzi-sub004/internal/auth"
	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/user"
	"github.com/jemishpatoliya/trozzi-sub004/internal/service"
)

// ok 成功统一返回 {"success": true, "data": ...}
func ok(ctx iris.Context, data interface{}) {
	_ = ctx.JSON(iris.Map{"success": true, "data": data})
}

// created 创建类接口返回 201
func created(ctx iris.Context, data interface{}) {
	ctx.StatusCode(iris.StatusCreated)
	_ = ctx.JSON(iris.Map{"success": true, "data": data})
}

// fail 失败统一返回 {"success": false, "message": ...}
func fail(ctx iris.Context, status int, msg string) {
	ctx.StopWithJSON(status, iris.Map{"success": false, "message": msg})
}

// handleError 把服务层错误翻译成 HTTP 状态码。
// 未识别的错误一律 500，并且不把内部细节透出去。
func handleError(ctx iris.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		fail(ctx, iris.StatusBadRequest, ve.Error())
		return
	}
	var te *order.InvalidTransitionError
	if errors.As(err, &te) {
		fail(ctx, iris.StatusConflict, te.Error())
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(ctx, iris.StatusUnauthorized, err.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		fail(ctx, iris.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrDuplicateEmail):
		fail(ctx, iris.StatusConflict, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("path", ctx.Path()),
			zap.Error(err))
		fail(ctx, iris.StatusInternalServerError, "internal server error")
	}
}

// bearerToken 取出 Authorization 头里的裸 token，兼容带 Bearer 前缀的写法
func bearerToken(ctx iris.Context) string {
	h := ctx.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return h
}

// authHandler 登录校验中间件。先查 Redis 缓存的解析结果，未命中再
// 验签并回填缓存；requireAdmin 为 true 时只放行管理员身份。
func authHandler(cfg *config.JWTConfig, cache *auth.TokenCache, requireAdmin bool) iris.Handler {
	return func(ctx iris.Context) {
		token := bearerToken(ctx)
		if token == "" {
			fail(ctx, iris.StatusUnauthorized, "missing token")
			return
		}

		rctx := ctx.Request().Context()
		claims, hit, err := cache.Get(rctx, token)
		if err != nil {
			// 缓存故障不拦请求，走验签兜底
			service.GetMonitor().RecordRedisError()
			zap.L().Warn("token cache lookup failed", zap.Error(err))
		}
		if !hit {
			claims, err = auth.ParseToken(cfg, token)
			if err != nil {
				fail(ctx, iris.StatusUnauthorized, "invalid token")
				return
			}
			if err := cache.Set(rctx, token, claims); err != nil {
				service.GetMonitor().RecordRedisError()
				zap.L().Warn("token cache store failed", zap.Error(err))
			}
		}

		if requireAdmin && claims.Role != user.RoleAdmin {
			fail(ctx, iris.StatusForbidden, "admin only")
			return
		}

		uid, err := service.ParseObjectID(claims.UserID)
		if err != nil {
			fail(ctx, iris.StatusUnauthorized, "invalid token")
			return
		}
		ctx.Values().Set("user_id", uid)
		ctx.Values().Set("role", claims.Role)
		ctx.Values().Set("email", claims.Email)
		ctx.Next()
	}
}

// currentUserID 从上下文取当前登录者的 ObjectID（authHandler 已写入）
func currentUserID(ctx iris.Context) primitive.ObjectID {
	uid, _ := ctx.Values().Get("user_id").(primitive.ObjectID)
	return uid
}

// pathObjectID 解析路径参数里的 ObjectID，非法时返回 false 并已写响应
func pathObjectID(ctx iris.Context, name string) (primitive.ObjectID, bool) {
	id, err := service.ParseObjectID(ctx.Params().Get(name))
	if err != nil {
		fail(ctx, iris.StatusBadRequest, "invalid id: "+ctx.Params().Get(name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseIDList hex 列表转 ObjectID，跳过非法项
func parseIDList(hexes []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		if id, err := service.ParseObjectID(h); err == nil {
			out = append(out, id)
		}
	}
	return out
}
