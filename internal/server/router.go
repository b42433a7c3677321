package server

import (
	"time"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jemishpatoliya/trozzi-sub004/internal/auth"
	"github.com/jemishpatoliya/trozzi-sub004/internal/config"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/payment"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/product"
	"github.com/jemishpatoliya/trozzi-sub004/internal/datamodels/ticket"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/mq"
	"github.com/jemishpatoliya/trozzi-sub004/internal/infra/redis"
	"github.com/jemishpatoliya/trozzi-sub004/internal/middleware"
	"github.com/jemishpatoliya/trozzi-sub004/internal/repository/mongodb"
	"github.com/jemishpatoliya/trozzi-sub004/internal/service"
)

// RegisterRoutes 注册前台商城的 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mongodb.Init(&cfg.Mongo)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mongodb.NewUserRepository(db)
	adminRepo := mongodb.NewAdminRepository(db)
	productRepo := mongodb.NewProductRepository(db)
	cartRepo := mongodb.NewCartRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	paymentRepo := mongodb.NewPaymentRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db)
	ticketRepo := mongodb.NewTicketRepository(db)

	notifySvc := service.NewNotificationService(notificationRepo, redisClient, mqConn, &cfg.Notify)
	userSvc := service.NewUserService(userRepo, adminRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo, paymentRepo, notifySvc)
	paymentSvc := service.NewPaymentService(mongodb.Client(), paymentRepo, orderRepo, service.NewMockGateway(&cfg.Payment), notifySvc)
	ticketSvc := service.NewTicketService(ticketRepo, notifySvc)

	tokenCache := auth.NewTokenCache(redisClient, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ok(ctx, iris.Map{"status": "ok"})
	})

	// ---------- 注册 / 登录 ----------

	api.Post("/auth/register", func(ctx iris.Context) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Phone    string `json:"phone"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Name, req.Email, req.Phone, req.Password)
		if err != nil {
			handleError(ctx, err)
			return
		}
		token, _, err := userSvc.Login(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, iris.Map{"token": token, "user": u})
	})

	api.Post("/auth/login", func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		token, u, err := userSvc.Login(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"token": token, "user": u})
	})

	// ---------- 商品（免登录） ----------

	// 上架商品列表，带解析好的颜色变体
	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListPublic(ctx.Request().Context())
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 商品详情按 slug 取，下架/隐藏的一律按不存在处理
	api.Get("/products/{slug:string}", func(ctx iris.Context) {
		p, err := productSvc.GetBySlug(ctx.Request().Context(), ctx.Params().Get("slug"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// ---------- 需要登录的接口 ----------

	authAPI := api.Party("/", authHandler(&cfg.JWT, tokenCache, false))

	// 提交评论，先进待审队列
	authAPI.Post("/products/{slug:string}/reviews", func(ctx iris.Context) {
		p, err := productSvc.GetBySlug(ctx.Request().Context(), ctx.Params().Get("slug"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
			Author  string `json:"author"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		author := req.Author
		if author == "" {
			author, _ = ctx.Values().Get("email").(string)
		}
		rv := &product.Review{
			UserID:  currentUserID(ctx),
			Author:  author,
			Rating:  req.Rating,
			Comment: req.Comment,
		}
		if err := productSvc.AddReview(ctx.Request().Context(), p.ID, rv); err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, rv)
	})

	// ---------- 购物车 ----------

	authAPI.Get("/cart", func(ctx iris.Context) {
		c, err := cartSvc.Get(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Get("/cart/count", func(ctx iris.Context) {
		n, err := cartSvc.Count(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"count": n})
	})

	authAPI.Post("/cart/add", func(ctx iris.Context) {
		var req struct {
			ProductID string `json:"productId"`
			Quantity  int64  `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		pid, err := service.ParseObjectID(req.ProductID)
		if err != nil {
			fail(ctx, iris.StatusBadRequest, "invalid productId")
			return
		}
		c, err := cartSvc.AddItem(ctx.Request().Context(), currentUserID(ctx), pid, req.Quantity)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, c)
	})

	// 数量改为 0 等价于移除
	authAPI.Put("/cart/update", func(ctx iris.Context) {
		var req struct {
			ProductID string `json:"productId"`
			Quantity  int64  `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		pid, err := service.ParseObjectID(req.ProductID)
		if err != nil {
			fail(ctx, iris.StatusBadRequest, "invalid productId")
			return
		}
		c, err := cartSvc.UpdateItem(ctx.Request().Context(), currentUserID(ctx), pid, req.Quantity)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Post("/cart/remove", func(ctx iris.Context) {
		var req struct {
			ProductID string `json:"productId"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		pid, err := service.ParseObjectID(req.ProductID)
		if err != nil {
			fail(ctx, iris.StatusBadRequest, "invalid productId")
			return
		}
		c, err := cartSvc.RemoveItem(ctx.Request().Context(), currentUserID(ctx), pid)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, c)
	})

	authAPI.Delete("/cart", func(ctx iris.Context) {
		if err := cartSvc.Clear(ctx.Request().Context(), currentUserID(ctx)); err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"cleared": true})
	})

	// ---------- 订单 ----------

	authAPI.Post("/orders", func(ctx iris.Context) {
		var req service.CreateOrderInput
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		o, err := orderSvc.Create(ctx.Request().Context(), currentUserID(ctx), &req)
		if err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, o)
	})

	authAPI.Get("/orders/my", func(ctx iris.Context) {
		list, err := orderSvc.ListMine(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Get("/orders/{id:string}", func(ctx iris.Context) {
		oid, okID := pathObjectID(ctx, "id")
		if !okID {
			return
		}
		o, err := orderSvc.Get(ctx.Request().Context(), currentUserID(ctx), oid)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// ---------- 支付（整组限流） ----------

	payAPI := authAPI.Party("/payments", middleware.PaymentRateLimit())

	payAPI.Post("/create-order", func(ctx iris.Context) {
		var req struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
			Provider string  `json:"provider"`
			OrderID  string  `json:"orderId"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		orderID := primitive.NilObjectID
		if req.OrderID != "" {
			var err error
			if orderID, err = service.ParseObjectID(req.OrderID); err != nil {
				fail(ctx, iris.StatusBadRequest, "invalid orderId")
				return
			}
		}
		res, err := paymentSvc.CreateAttempt(ctx.Request().Context(), currentUserID(ctx),
			req.Amount, req.Currency, payment.Provider(req.Provider), orderID)
		if err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, res)
	})

	payAPI.Post("/verify", func(ctx iris.Context) {
		var req struct {
			PaymentID         string                    `json:"paymentId"`
			Status            string                    `json:"status"`
			ProviderPaymentID string                    `json:"providerPaymentId"`
			Signature         string                    `json:"signature"`
			OrderData         *service.CreateOrderInput `json:"orderData"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		pid, err := service.ParseObjectID(req.PaymentID)
		if err != nil {
			fail(ctx, iris.StatusBadRequest, "invalid paymentId")
			return
		}
		p, err := paymentSvc.Verify(ctx.Request().Context(), currentUserID(ctx), &service.VerifyInput{
			PaymentID:         pid,
			Status:            payment.Status(req.Status),
			ProviderPaymentID: req.ProviderPaymentID,
			ProviderSignature: req.Signature,
			OrderData:         req.OrderData,
		})
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, p)
	})

	payAPI.Get("/", func(ctx iris.Context) {
		list, err := paymentSvc.ListMine(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// ---------- 通知 ----------

	authAPI.Get("/notifications", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := notifySvc.ListForUser(ctx.Request().Context(), currentUserID(ctx), limit)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Post("/notifications/mark-read", func(ctx iris.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		n, err := notifySvc.MarkRead(ctx.Request().Context(), currentUserID(ctx), parseIDList(req.IDs))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, iris.Map{"updated": n})
	})

	// ---------- 工单 ----------

	authAPI.Post("/tickets", func(ctx iris.Context) {
		var req struct {
			Subject  string `json:"subject"`
			Message  string `json:"message"`
			Priority string `json:"priority"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		t, err := ticketSvc.Create(ctx.Request().Context(), currentUserID(ctx),
			req.Subject, req.Message, ticket.Priority(req.Priority))
		if err != nil {
			handleError(ctx, err)
			return
		}
		created(ctx, t)
	})

	authAPI.Get("/tickets", func(ctx iris.Context) {
		list, err := ticketSvc.ListMine(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, list)
	})

	authAPI.Get("/tickets/{ticketId:string}", func(ctx iris.Context) {
		t, err := ticketSvc.Get(ctx.Request().Context(), currentUserID(ctx), ctx.Params().Get("ticketId"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, t)
	})

	// 用户追加回复，不改状态
	authAPI.Post("/tickets/{ticketId:string}/replies", func(ctx iris.Context) {
		var req struct {
			Message string `json:"message"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, iris.StatusBadRequest, err.Error())
			return
		}
		uid := currentUserID(ctx)
		t, err := ticketSvc.Get(ctx.Request().Context(), uid, ctx.Params().Get("ticketId"))
		if err != nil {
			handleError(ctx, err)
			return
		}
		email, _ := ctx.Values().Get("email").(string)
		t, err = ticketSvc.Reply(ctx.Request().Context(), t, uid, email, req.Message, false)
		if err != nil {
			handleError(ctx, err)
			return
		}
		ok(ctx, t)
	})
}
