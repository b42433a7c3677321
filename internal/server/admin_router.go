package server

import (
	"errors"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/jemishpatoliya/trozzi-sub004/internal/auth"
	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/order"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/mq"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/redis"
	"github.com/jemishpatoliya/trozzi-sub004/internal/repository/mongodb"
	"github.com/jemishpatoliya/trozzi-sub004/internal/service"
)

// respondDashboard 看板接口的降级约定：查询部分失败时仍然返回 200，
// 把能拿到的数据（缺的指标为零值）照常下发，success 置 false 提示前端。
func respondDashboard(ctx iris.Context, data interface{}, err error) {
	if err == nil {
		ok(ctx, data)
		return
	}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		fail(ctx, iris.StatusBadRequest, ve.Error())
		return
	}
	_ = ctx.JSON(iris.Map{"success": false, "data": data, "message": "partial data"})
}

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台商城服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mongodb.Init(&cfg.Mongo)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mongodb.NewUserRepository(db)
	adminRepo := mongodb.NewAdminRepository(db)
	productRepo := mongodb.NewProductRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	paymentRepo := mongodb.NewPaymentRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db)
	ticketRepo := mongodb.NewTicketRepository(db)

	notifySvc := service.NewNotificationService(notificationRepo, redisClient, mqConn, &cfg.Notify)
	userSvc := service.NewUserService(userRepo, adminRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(orderRepo, paymentRepo, notifySvc)
	ticketSvc := service.NewTicketService(ticketRepo, notifySvc)
	dashSvc := service.NewDashboardService(productRepo, orderRepo, userRepo)

	tokenCache := auth.NewTokenCache(redisClient, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ok(ctx, iris.Map{"status": "ok"})
	})

	// 管理员登录
	api.Post("/auth/login", func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		token, a, err := userSvc.AdminLogin(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"token": token, "admin": a})
	})

	adminAPI := api.Party("/", authHandler(&cfg.JWT, tokenCache, true))

	// ---------- 商品管理 ----------

	// 后台列表：含草稿 / 下架 / 私有
	adminAPI.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	adminAPI.Post("/products", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		if err := productSvc.Create(ctx.Request().Context(), &p); err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, &p)
	})

	adminAPI.Get("/products/{id:string}", func(ctx iris.Context) {
		pid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		p, err := productSvc.GetByID(ctx.Request().Context(), pid)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 整体覆盖式更新：body 里没带的字段回落为零值再被校验补默认
	adminAPI.Put("/products/{id:string}", func(ctx iris.Context) {
		pid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		p, err := productSvc.GetByID(ctx.Request().Context(), pid)
		if err != nil {
			handleError(ctx, err)
			return
		}
		if err := ctx.ReadJSON(p); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		p.ID = pid
		if err := productSvc.Update(ctx.Request().Context(), p); err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, p)
	})

	adminAPI.Delete("/products/{id:string}", func(ctx iris.Context) {
		pid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		if err := productSvc.Delete(ctx.Request().Context(), pid); err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"deleted": true})
	})

	// 评论审核：approved 进前台展示，rejected 隐藏
	adminAPI.Put("/products/{id:string}/reviews/{reviewId:string}/status", func(ctx iris.Context) {
		pid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		rid, okID := pathObjectID(ctx, "reviewId")
		if !okID {
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		if err := productSvc.SetReviewStatus(ctx.Request().Context(), pid, rid, product.ReviewStatus(req.Status)); err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"status": req.Status})
	})

	// ---------- 订单管理 ----------

	adminAPI.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 20)
		list, err := orderSvc.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	adminAPI.Get("/orders/{id:string}", func(ctx iris.Context) {
		oid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		o, err := orderSvc.GetAny(ctx.Request().Context(), oid)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 改订单状态，走状态机校验，非法流转返回 409
	adminAPI.Put("/orders/{id:string}/status", func(ctx iris.Context) {
		oid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		o, err := orderSvc.SetStatus(ctx.Request().Context(), oid, order.Status(req.Status))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// ---------- 看板 ----------

	adminAPI.Get("/dashboard/stats", func(ctx iris.Context) {
		period := ctx.URLParamDefault("period", "30d")
		stats, err := dashSvc.Stats(ctx.Request().Context(), period)
		respondDashboard(ctx, stats, err)
	})

	adminAPI.Get("/dashboard/analytics", func(ctx iris.Context) {
		period := ctx.URLParamDefault("period", "30d")
		a, err := dashSvc.Analytics(ctx.Request().Context(), period)
		respondDashboard(ctx, a, err)
	})

	adminAPI.Get("/dashboard/charts", func(ctx iris.Context) {
		period := ctx.URLParamDefault("period", "30d")
		points, err := dashSvc.Charts(ctx.Request().Context(), period)
		respondDashboard(ctx, points, err)
	})

	adminAPI.Get("/dashboard/top-products", func(ctx iris.Context) {
		period := ctx.URLParamDefault("period", "30d")
		limit := ctx.URLParamIntDefault("limit", 5)
		rows, err := dashSvc.TopProducts(ctx.Request().Context(), period, limit)
		respondDashboard(ctx, rows, err)
	})

	adminAPI.Get("/dashboard/alerts", func(ctx iris.Context) {
		list, err := dashSvc.Alerts(ctx.Request().Context())
		respondDashboard(ctx, list, err)
	})

	adminAPI.Get("/dashboard/complete", func(ctx iris.Context) {
		period := ctx.URLParamDefault("period", "30d")
		d, err := dashSvc.Complete(ctx.Request().Context(), period)
		respondDashboard(ctx, d, err)
	})

	// ---------- 通知 ----------

	adminAPI.Get("/notifications", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := notifySvc.ListForAdmins(ctx.Request().Context(), limit)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// userId 留空则是管理端广播
	adminAPI.Post("/notifications", func(ctx iris.Context) {
		var req struct {
			UserID  string `json:"userId"`
			Title   string `json:"title"`
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		in := &service.NotifyInput{Title: req.Title, Message: req.Message, Type: req.Type}
		if req.UserID != "" {
			uid, err := service.ParseObjectID(req.UserID)
			if err != nil {
				fail(ctx, iris.StatusBadRequest, "invalid userId")
				return
			}
			in.UserID = &uid
		}
		n, err := notifySvc.Notify(ctx.Request().Context(), in)
		if err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, n)
	})

	adminAPI.Post("/notifications/mark-read", func(ctx iris.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		n, err := notifySvc.MarkAdminRead(ctx.Request().Context(), parseIDList(req.IDs))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"updated": n})
	})

	// ---------- 工单 ----------

	adminAPI.Get("/tickets", func(ctx iris.Context) {
		list, err := ticketSvc.ListAll(ctx.Request().Context())
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	adminAPI.Get("/tickets/{ticketId:string}", func(ctx iris.Context) {
		t, err := ticketSvc.GetAny(ctx.Request().Context(), ctx.Params().Get("ticketId"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, t)
	})

	// 管理员回复：open 的工单顺手推进到 in_progress，并通知用户
	adminAPI.Post("/tickets/{ticketId:string}/replies", func(ctx iris.Context) {
		var req struct {
			Message string `json:"message"`
			Author  string `json:"author"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		t, err := ticketSvc.GetAny(ctx.Request().Context(), ctx.Params().Get("ticketId"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		author := req.Author
		if author == "" {
			author = "support"
		}
		t, err = ticketSvc.Reply(ctx.Request().Context(), t, currentUserID(ctx), author, req.Message, true)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, t)
	})

	adminAPI.Put("/tickets/{ticketId:string}/status", func(ctx iris.Context) {
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		t, err := ticketSvc.SetStatus(ctx.Request().Context(), ctx.Params().Get("ticketId"), ticket.Status(req.Status))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, t)
	})

	// ---------- 运行状态 ----------

	adminAPI.Get("/monitor", func(ctx iris.Context) {
		ok(ctx, service.GetMonitor().Snapshot())
	})
}
